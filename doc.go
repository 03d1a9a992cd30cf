// Package slidingsync is a client-side engine for Matrix Simplified Sliding
// Sync (MSC4186). It drives an incremental long-poll conversation with a
// homeserver, owning the cursor, a set of named windowed lists, explicit room
// subscriptions and protocol extensions, and emits one SyncUpdate per tick.
//
// The engine is single-threaded and cooperative: it assumes a caller drives
// SyncOnce in a loop and never calls configuration methods (AddList,
// SubscribeToRooms, EnableExtension, RestoreState) while a tick is in flight.
package slidingsync

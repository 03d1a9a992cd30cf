package sync3

import (
	"encoding/json"

	"github.com/matrix-org/sliding-sync-client/sync3/extensions"
)

// RoomStatus classifies a room update by the membership state the current
// user holds in that room, as of this tick.
type RoomStatus string

const (
	RoomJoined  RoomStatus = "joined"
	RoomInvited RoomStatus = "invited"
	RoomLeft    RoomStatus = "left"
)

// RoomUpdate is one room's contribution to a tick's SyncUpdate. Which fields
// are populated depends on Status: invited rooms carry only InviteState from
// the room payload; left and joined rooms carry the room's name, timeline,
// state and counts as the server sent them; joined rooms may carry none of
// these when the update exists solely to surface merged extension data for a
// room the server didn't mention. Per-room extension data (AccountData,
// TypingUserIDs, Receipts) is merged in whatever the Status.
type RoomUpdate struct {
	RoomID string
	Status RoomStatus

	Name    string
	Initial bool

	Timeline      []json.RawMessage
	RequiredState []json.RawMessage
	InviteState   []json.RawMessage

	NotificationCount int64
	HighlightCount    int64
	JoinedCount       *int64
	InvitedCount      *int64
	BumpStamp         *int64
	NumLive           *int64
	Heroes            []Hero

	AccountData    []json.RawMessage
	TypingUserIDs  []string
	Receipts       json.RawMessage
}

// ExtensionsUpdate carries every decoded extension section of the tick. The
// per-room parts of account data, typing and receipts are additionally
// merged into the relevant RoomUpdate.
type ExtensionsUpdate struct {
	ToDevice    *extensions.ToDeviceResponse
	E2EE        *extensions.E2EEResponse
	AccountData *extensions.AccountDataResponse
	Typing      *extensions.TypingResponse
	Receipts    *extensions.ReceiptsResponse
}

// SyncUpdate is the per-tick output of the engine: the new cursor, which
// lists advanced, and every room/extension delta observed this tick.
type SyncUpdate struct {
	Pos          string
	UpdatedLists []string
	Rooms        struct {
		Joined  map[string]RoomUpdate
		Invited map[string]RoomUpdate
		Left    map[string]RoomUpdate
	}
	Extensions    ExtensionsUpdate
	IsFullySynced bool
}

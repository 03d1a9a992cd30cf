package slidingsync

import "github.com/matrix-org/sliding-sync-client/sync3"

// SyncState is the persistable subset of the engine's state: the cursor, the
// to-device since-token, and each known list's current range/total. It is
// the exact shape described in spec.md §6 ("Persisted state layout") and
// round-trips through UTF-8 JSON byte-identically modulo key order and
// modulo the insertion order of the lists map (JSON object key order is not
// itself significant to the protocol).
type SyncState struct {
	Pos           *string                        `json:"pos,omitempty"`
	ToDeviceSince *string                         `json:"to_device_since,omitempty"`
	Lists         map[string]sync3.ListSnapshot `json:"lists,omitempty"`
}

// ExportState returns a snapshot of everything needed to resume this session
// later: the cursor, the to-device token, and every list's range/total.
func (e *Engine) ExportState() SyncState {
	state := SyncState{
		Pos:           e.cur.pos,
		ToDeviceSince: e.cur.toDeviceSince,
	}
	if len(e.listOrder) > 0 {
		state.Lists = make(map[string]sync3.ListSnapshot, len(e.listOrder))
		for _, name := range e.listOrder {
			state.Lists[name] = e.lists[name].ExportState()
		}
	}
	return state
}

// RestoreState seeds the engine's cursor and lists from a previously
// exported snapshot. Snapshot entries for list names the engine doesn't
// know about (AddList wasn't called for them) are silently dropped, per
// spec.md §4.7.
func (e *Engine) RestoreState(state SyncState) {
	e.cur.pos = state.Pos
	e.cur.toDeviceSince = state.ToDeviceSince
	for name, snap := range state.Lists {
		if l, ok := e.lists[name]; ok {
			l.RestoreState(snap)
		}
	}
}

package sync3

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/matrix-org/sliding-sync-client/sync3/extensions"
)

// Classify splits a raw sliding sync response into the tick's SyncUpdate. It
// is pure with respect to engine state: it never mutates pos, lists or
// extension configs, so it can run before (or entirely independently of) the
// Lists' HandleResponse calls.
//
// updatedLists is the set of list names the caller has already intersected
// with the engine's known lists (response.lists ∩ known_lists); it is copied
// verbatim into the result.
func Classify(raw *RawResponse, updatedLists []string, currentUserID string) (*SyncUpdate, error) {
	ext, err := parseExtensions(raw.Extensions)
	if err != nil {
		return nil, err
	}

	update := &SyncUpdate{
		Pos:          raw.Pos,
		UpdatedLists: append([]string{}, updatedLists...),
		Extensions:   *ext,
	}
	update.Rooms.Joined = make(map[string]RoomUpdate)
	update.Rooms.Invited = make(map[string]RoomUpdate)
	update.Rooms.Left = make(map[string]RoomUpdate)

	extOnlyRooms := unionExtensionRoomIDs(ext)

	for roomID, rr := range raw.Rooms {
		delete(extOnlyRooms, roomID)
		ru := classifyRoom(roomID, rr, currentUserID)
		mergeRoomExtensions(&ru, roomID, ext)
		attachToBucket(update, ru)
	}

	// Rooms that only appear in per-room extension payloads (typing,
	// receipts, account data) surface as joined updates carrying nothing
	// but that extension data. This is the mechanism by which extension-only
	// updates surface between timeline-bearing ticks.
	for roomID := range extOnlyRooms {
		ru := RoomUpdate{RoomID: roomID, Status: RoomJoined}
		mergeRoomExtensions(&ru, roomID, ext)
		update.Rooms.Joined[roomID] = ru
	}

	return update, nil
}

func classifyRoom(roomID string, rr RawRoom, currentUserID string) RoomUpdate {
	ru := RoomUpdate{
		RoomID:            roomID,
		Name:              rr.Name,
		Initial:           rr.Initial,
		Timeline:          rr.Timeline,
		RequiredState:     rr.RequiredState,
		NotificationCount: rr.UnreadNotifications.NotificationCount,
		HighlightCount:    rr.UnreadNotifications.HighlightCount,
		JoinedCount:       rr.JoinedCount,
		InvitedCount:      rr.InvitedCount,
		BumpStamp:         rr.BumpStamp,
		NumLive:           rr.NumLive,
		Heroes:            rr.Heroes,
	}

	if len(rr.InviteState) > 0 {
		// Invited rooms only carry stripped state; the other fields above
		// don't apply to an invite and are left unset.
		return RoomUpdate{
			RoomID:      roomID,
			Status:      RoomInvited,
			InviteState: rr.InviteState,
		}
	}

	if currentUserID != "" && memberHasLeftOrBanned(rr.RequiredState, currentUserID) {
		ru.Status = RoomLeft
		return ru
	}

	ru.Status = RoomJoined
	return ru
}

// memberHasLeftOrBanned scans the parsed required-state events for an
// m.room.member event about currentUserID whose membership is leave or ban.
func memberHasLeftOrBanned(requiredState []json.RawMessage, currentUserID string) bool {
	for _, ev := range requiredState {
		if gjson.GetBytes(ev, "type").String() != "m.room.member" {
			continue
		}
		if gjson.GetBytes(ev, "state_key").String() != currentUserID {
			continue
		}
		switch gjson.GetBytes(ev, "content.membership").String() {
		case "leave", "ban":
			return true
		}
	}
	return false
}

func attachToBucket(update *SyncUpdate, ru RoomUpdate) {
	switch ru.Status {
	case RoomInvited:
		update.Rooms.Invited[ru.RoomID] = ru
	case RoomLeft:
		update.Rooms.Left[ru.RoomID] = ru
	default:
		update.Rooms.Joined[ru.RoomID] = ru
	}
}

// unionExtensionRoomIDs is the necessary pre-pass scanning per-room extension
// maps to build the set of room ids that carry extension data, so the
// classifier can answer "did I already emit this room?" without a second
// pass over raw.Rooms.
func unionExtensionRoomIDs(ext *ExtensionsUpdate) map[string]struct{} {
	out := make(map[string]struct{})
	if ext.AccountData != nil {
		for roomID := range ext.AccountData.Rooms {
			out[roomID] = struct{}{}
		}
	}
	if ext.Typing != nil {
		for roomID := range ext.Typing.Rooms {
			out[roomID] = struct{}{}
		}
	}
	if ext.Receipts != nil {
		for roomID := range ext.Receipts.Rooms {
			out[roomID] = struct{}{}
		}
	}
	return out
}

func mergeRoomExtensions(ru *RoomUpdate, roomID string, ext *ExtensionsUpdate) {
	if ext.AccountData != nil {
		if ad, ok := ext.AccountData.Rooms[roomID]; ok {
			ru.AccountData = ad
		}
	}
	if ext.Typing != nil {
		if t, ok := ext.Typing.Rooms[roomID]; ok {
			ru.TypingUserIDs = t.UserIDs
		}
	}
	if ext.Receipts != nil {
		if r, ok := ext.Receipts.Rooms[roomID]; ok {
			ru.Receipts = r
		}
	}
}

// parseExtensions decodes the top-level extensions object into its known
// sub-sections, ignoring any extension name it doesn't recognise.
func parseExtensions(raw json.RawMessage) (*ExtensionsUpdate, error) {
	out := &ExtensionsUpdate{}
	if len(raw) == 0 {
		return out, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	var err error
	if v, ok := fields[extensions.ToDevice]; ok {
		if out.ToDevice, err = extensions.ParseToDeviceResponse(v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields[extensions.E2EE]; ok {
		if out.E2EE, err = extensions.ParseE2EEResponse(v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields[extensions.AccountData]; ok {
		if out.AccountData, err = extensions.ParseAccountDataResponse(v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields[extensions.Typing]; ok {
		if out.Typing, err = extensions.ParseTypingResponse(v); err != nil {
			return nil, err
		}
	}
	if v, ok := fields[extensions.Receipts]; ok {
		if out.Receipts, err = extensions.ParseReceiptsResponse(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Package m provides functional matchers for asserting against a
// sync3.SyncUpdate in tests, in the same hand-rolled idiom the teacher used
// for its own response assertions: small composable RespMatcher/RoomMatcher
// functions plus one entry point (MatchResponse) that reports every failure
// via t.Errorf rather than failing fast on the first mismatch.
package m

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/matrix-org/sliding-sync-client/sync3"
)

type RespMatcher func(update *sync3.SyncUpdate) error
type RoomMatcher func(r sync3.RoomUpdate) error

func MatchRoomName(name string) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if name == "" {
			return nil
		}
		if r.Name != name {
			return fmt.Errorf("name mismatch, got %s want %s", r.Name, name)
		}
		return nil
	}
}

func MatchJoinCount(count int64) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if r.JoinedCount == nil {
			return fmt.Errorf("MatchJoinCount: no joined_count present, want %d", count)
		}
		if *r.JoinedCount != count {
			return fmt.Errorf("MatchJoinCount: got %v want %v", *r.JoinedCount, count)
		}
		return nil
	}
}

func MatchInviteCount(count int64) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if r.InvitedCount == nil {
			return fmt.Errorf("MatchInviteCount: no invited_count present, want %d", count)
		}
		if *r.InvitedCount != count {
			return fmt.Errorf("MatchInviteCount: got %v want %v", *r.InvitedCount, count)
		}
		return nil
	}
}

func MatchRoomRequiredState(events []json.RawMessage) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if len(r.RequiredState) != len(events) {
			return fmt.Errorf("required state length mismatch, got %d want %d", len(r.RequiredState), len(events))
		}
		for _, want := range events {
			found := false
			for _, got := range r.RequiredState {
				if bytes.Equal(got, want) {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("required state want event %v but it does not exist", string(want))
			}
		}
		return nil
	}
}

func MatchRoomInviteState(events []json.RawMessage) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if len(r.InviteState) != len(events) {
			return fmt.Errorf("invite state length mismatch, got %d want %d", len(r.InviteState), len(events))
		}
		for _, want := range events {
			found := false
			for _, got := range r.InviteState {
				if bytes.Equal(got, want) {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("invite state want event %v but it does not exist", string(want))
			}
		}
		return nil
	}
}

// MatchRoomTimeline matches the timeline with exactly these events in
// exactly this order.
func MatchRoomTimeline(events []json.RawMessage) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if len(r.Timeline) != len(events) {
			return fmt.Errorf("timeline length mismatch: got %d want %d", len(r.Timeline), len(events))
		}
		for i := range r.Timeline {
			if !bytes.Equal(r.Timeline[i], events[i]) {
				return fmt.Errorf("timeline[%d]\ngot  %v \nwant %v", i, string(r.Timeline[i]), string(events[i]))
			}
		}
		return nil
	}
}

// MatchRoomTimelineMostRecent takes the last n events of `events` and only
// checks against the last n events of the timeline.
func MatchRoomTimelineMostRecent(n int, events []json.RawMessage) RoomMatcher {
	subset := events[len(events)-n:]
	return func(r sync3.RoomUpdate) error {
		if len(r.Timeline) < len(subset) {
			return fmt.Errorf("timeline length mismatch: got %d want at least %d", len(r.Timeline), len(subset))
		}
		gotSubset := r.Timeline[len(r.Timeline)-n:]
		for i := range gotSubset {
			if !bytes.Equal(gotSubset[i], subset[i]) {
				return fmt.Errorf("timeline[%d]\ngot  %v \nwant %v", i, string(gotSubset[i]), string(subset[i]))
			}
		}
		return nil
	}
}

func MatchRoomHighlightCount(count int64) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if r.HighlightCount != count {
			return fmt.Errorf("highlight count mismatch, got %d want %d", r.HighlightCount, count)
		}
		return nil
	}
}

func MatchRoomNotificationCount(count int64) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if r.NotificationCount != count {
			return fmt.Errorf("notification count mismatch, got %d want %d", r.NotificationCount, count)
		}
		return nil
	}
}

func MatchRoomInitial(initial bool) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if r.Initial != initial {
			return fmt.Errorf("MatchRoomInitial: got %v want %v", r.Initial, initial)
		}
		return nil
	}
}

func MatchTypingUserIDs(userIDs []string) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		if !reflect.DeepEqual(r.TypingUserIDs, userIDs) {
			return fmt.Errorf("MatchTypingUserIDs: got %v want %v", r.TypingUserIDs, userIDs)
		}
		return nil
	}
}

func MatchRoomAccountData(events []json.RawMessage) RoomMatcher {
	return func(r sync3.RoomUpdate) error {
		return EqualAnyOrder(r.AccountData, events)
	}
}

// lookupRoom looks a room id up across all three buckets.
func lookupRoom(update *sync3.SyncUpdate, roomID string) (sync3.RoomUpdate, bool) {
	if r, ok := update.Rooms.Joined[roomID]; ok {
		return r, true
	}
	if r, ok := update.Rooms.Invited[roomID]; ok {
		return r, true
	}
	if r, ok := update.Rooms.Left[roomID]; ok {
		return r, true
	}
	return sync3.RoomUpdate{}, false
}

func MatchRoomSubscription(roomID string, matchers ...RoomMatcher) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		room, ok := lookupRoom(update, roomID)
		if !ok {
			return fmt.Errorf("MatchRoomSubscription: want update for %s but it was missing", roomID)
		}
		return CheckRoom(room, matchers...)
	}
}

func MatchRoomSubscriptions(wantSubs map[string][]RoomMatcher) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		for roomID, matchers := range wantSubs {
			room, ok := lookupRoom(update, roomID)
			if !ok {
				return fmt.Errorf("MatchRoomSubscriptions: want update for %s but it was missing", roomID)
			}
			if err := CheckRoom(room, matchers...); err != nil {
				return fmt.Errorf("MatchRoomSubscriptions[%s]: %s", roomID, err)
			}
		}
		return nil
	}
}

func MatchJoinedRoomsStrict(wantSubs map[string][]RoomMatcher) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if len(update.Rooms.Joined) != len(wantSubs) {
			return fmt.Errorf("MatchJoinedRoomsStrict: strict length: got %d joined rooms want %d", len(update.Rooms.Joined), len(wantSubs))
		}
		for roomID, matchers := range wantSubs {
			room, ok := update.Rooms.Joined[roomID]
			if !ok {
				return fmt.Errorf("MatchJoinedRoomsStrict: want joined room %s but it was missing", roomID)
			}
			if err := CheckRoom(room, matchers...); err != nil {
				return fmt.Errorf("MatchJoinedRoomsStrict[%s]: %s", roomID, err)
			}
		}
		return nil
	}
}

func MatchOTKCounts(otkCounts map[string]int64) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Extensions.E2EE == nil {
			return fmt.Errorf("MatchOTKCounts: no e2ee extension present")
		}
		if !reflect.DeepEqual(update.Extensions.E2EE.DeviceOneTimeKeysCount, otkCounts) {
			return fmt.Errorf("MatchOTKCounts: got %v want %v", update.Extensions.E2EE.DeviceOneTimeKeysCount, otkCounts)
		}
		return nil
	}
}

func MatchFallbackKeyTypes(fallbackKeyTypes []string) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Extensions.E2EE == nil {
			return fmt.Errorf("MatchFallbackKeyTypes: no e2ee extension present")
		}
		if !reflect.DeepEqual(update.Extensions.E2EE.DeviceUnusedFallbackKeyTypes, fallbackKeyTypes) {
			return fmt.Errorf("MatchFallbackKeyTypes: got %v want %v", update.Extensions.E2EE.DeviceUnusedFallbackKeyTypes, fallbackKeyTypes)
		}
		return nil
	}
}

func MatchDeviceLists(changed, left []string) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Extensions.E2EE == nil {
			return fmt.Errorf("MatchDeviceLists: no e2ee extension present")
		}
		if update.Extensions.E2EE.DeviceLists == nil {
			return fmt.Errorf("MatchDeviceLists: no device lists present")
		}
		if !reflect.DeepEqual(update.Extensions.E2EE.DeviceLists.Changed, changed) {
			return fmt.Errorf("MatchDeviceLists: got changed: %v want %v", update.Extensions.E2EE.DeviceLists.Changed, changed)
		}
		if !reflect.DeepEqual(update.Extensions.E2EE.DeviceLists.Left, left) {
			return fmt.Errorf("MatchDeviceLists: got left: %v want %v", update.Extensions.E2EE.DeviceLists.Left, left)
		}
		return nil
	}
}

func MatchToDeviceMessages(wantMsgs []json.RawMessage) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Extensions.ToDevice == nil {
			return fmt.Errorf("MatchToDeviceMessages: missing to_device extension")
		}
		if len(update.Extensions.ToDevice.Events) != len(wantMsgs) {
			return fmt.Errorf("MatchToDeviceMessages: got %d events, want %d", len(update.Extensions.ToDevice.Events), len(wantMsgs))
		}
		for i := 0; i < len(wantMsgs); i++ {
			if !reflect.DeepEqual(update.Extensions.ToDevice.Events[i], wantMsgs[i]) {
				return fmt.Errorf("MatchToDeviceMessages[%d]: got %v want %v", i, string(update.Extensions.ToDevice.Events[i]), string(wantMsgs[i]))
			}
		}
		return nil
	}
}

func MatchToDeviceNextBatch(nextBatch string) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Extensions.ToDevice == nil {
			return fmt.Errorf("MatchToDeviceNextBatch: missing to_device extension")
		}
		if update.Extensions.ToDevice.NextBatch != nextBatch {
			return fmt.Errorf("MatchToDeviceNextBatch: got %s want %s", update.Extensions.ToDevice.NextBatch, nextBatch)
		}
		return nil
	}
}

func MatchAccountData(globals []json.RawMessage, rooms map[string][]json.RawMessage) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Extensions.AccountData == nil {
			return fmt.Errorf("MatchAccountData: no account_data extension")
		}
		if len(globals) > 0 {
			if err := EqualAnyOrder(update.Extensions.AccountData.Global, globals); err != nil {
				return fmt.Errorf("MatchAccountData[global]: %s", err)
			}
		}
		if len(rooms) > 0 {
			if len(rooms) != len(update.Extensions.AccountData.Rooms) {
				return fmt.Errorf("MatchAccountData: got %d rooms with account data, want %d", len(update.Extensions.AccountData.Rooms), len(rooms))
			}
			for roomID := range rooms {
				gots := update.Extensions.AccountData.Rooms[roomID]
				if gots == nil {
					return fmt.Errorf("MatchAccountData: want room account data for %s but it was missing", roomID)
				}
				if err := EqualAnyOrder(gots, rooms[roomID]); err != nil {
					return fmt.Errorf("MatchAccountData[room]: %s", err)
				}
			}
		}
		return nil
	}
}

func MatchUpdatedLists(names []string) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		got := append([]string{}, update.UpdatedLists...)
		want := append([]string{}, names...)
		sort.Strings(got)
		sort.Strings(want)
		if !reflect.DeepEqual(got, want) {
			return fmt.Errorf("MatchUpdatedLists: got %v want %v", update.UpdatedLists, names)
		}
		return nil
	}
}

func MatchIsFullySynced(want bool) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.IsFullySynced != want {
			return fmt.Errorf("MatchIsFullySynced: got %v want %v", update.IsFullySynced, want)
		}
		return nil
	}
}

func MatchPos(pos string) RespMatcher {
	return func(update *sync3.SyncUpdate) error {
		if update.Pos != pos {
			return fmt.Errorf("MatchPos: got %s want %s", update.Pos, pos)
		}
		return nil
	}
}

func MatchResponse(t *testing.T, update *sync3.SyncUpdate, matchers ...RespMatcher) {
	t.Helper()
	for _, matcher := range matchers {
		if err := matcher(update); err != nil {
			t.Errorf("MatchResponse: %s", err)
		}
	}
}

func CheckRoom(r sync3.RoomUpdate, matchers ...RoomMatcher) error {
	for _, matcher := range matchers {
		if err := matcher(r); err != nil {
			return fmt.Errorf("MatchRoom: %s", err)
		}
	}
	return nil
}

func EqualAnyOrder(got, want []json.RawMessage) error {
	if len(got) != len(want) {
		return fmt.Errorf("EqualAnyOrder: got %d, want %d", len(got), len(want))
	}
	gotCopy := append([]json.RawMessage{}, got...)
	wantCopy := append([]json.RawMessage{}, want...)
	sort.Slice(gotCopy, func(i, j int) bool {
		return string(gotCopy[i]) < string(gotCopy[j])
	})
	sort.Slice(wantCopy, func(i, j int) bool {
		return string(wantCopy[i]) < string(wantCopy[j])
	})
	for i := range gotCopy {
		if !reflect.DeepEqual(gotCopy[i], wantCopy[i]) {
			return fmt.Errorf("EqualAnyOrder: [%d] got %v want %v", i, string(gotCopy[i]), string(wantCopy[i]))
		}
	}
	return nil
}

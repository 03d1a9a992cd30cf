package slidingsync

import (
	"encoding/json"
	"testing"

	"github.com/matrix-org/sliding-sync-client/sync3"
)

func TestExportRestoreStateIsIdentity(t *testing.T) {
	e := newTestEngine(nil)
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})
	e.AddList("dms", sync3.ListConfig{Mode: sync3.ListModePaging, BatchSize: 25})

	roomsList, _ := e.GetList("rooms")
	roomsList.HandleResponse(sync3.ListResponse{Count: 50, Ops: []sync3.ListResponseOp{{Range: &sync3.Range{0, 19}}}})
	dmsList, _ := e.GetList("dms")
	dmsList.HandleResponse(sync3.ListResponse{Count: 60, Ops: []sync3.ListResponseOp{{Range: &sync3.Range{0, 24}}}})

	pos := "tok_5"
	tds := "td_5"
	e.cur.pos = &pos
	e.cur.toDeviceSince = &tds

	state := e.ExportState()

	restored := newTestEngine(nil)
	restored.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})
	restored.AddList("dms", sync3.ListConfig{Mode: sync3.ListModePaging, BatchSize: 25})
	restored.RestoreState(state)

	if restored.cur.pos == nil || *restored.cur.pos != "tok_5" {
		t.Errorf("pos not restored: %v", restored.cur.pos)
	}
	if restored.cur.toDeviceSince == nil || *restored.cur.toDeviceSince != "td_5" {
		t.Errorf("to_device_since not restored: %v", restored.cur.toDeviceSince)
	}

	for _, name := range []string{"rooms", "dms"} {
		want, _ := e.GetList(name)
		got, _ := restored.GetList(name)
		if got.Ranges()[0] != want.Ranges()[0] {
			t.Errorf("list %s range mismatch: got %v want %v", name, got.Ranges()[0], want.Ranges()[0])
		}
		if *got.ServerRoomCount() != *want.ServerRoomCount() {
			t.Errorf("list %s server_room_count mismatch: got %v want %v", name, *got.ServerRoomCount(), *want.ServerRoomCount())
		}
		if got.LoadingState() != want.LoadingState() {
			t.Errorf("list %s loading_state mismatch: got %s want %s", name, got.LoadingState(), want.LoadingState())
		}
	}
}

func TestSyncStateJSONRoundTrip(t *testing.T) {
	pos := "tok"
	tds := "td"
	rng := sync3.Range{3, 7}
	count := int64(42)
	state := SyncState{
		Pos:           &pos,
		ToDeviceSince: &tds,
		Lists: map[string]sync3.ListSnapshot{
			"rooms": {Range: &rng, ServerRoomCount: &count},
		},
	}

	b, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}

	var roundTripped SyncState
	if err := json.Unmarshal(b, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}

	b2, err := json.Marshal(roundTripped)
	if err != nil {
		t.Fatalf("re-marshal: %s", err)
	}
	if string(b) != string(b2) {
		t.Errorf("round trip not byte-identical:\n  first:  %s\n  second: %s", b, b2)
	}
}

func TestSyncStateOmitsUnsetFields(t *testing.T) {
	state := SyncState{}
	b, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}
	if string(b) != "{}" {
		t.Errorf("empty SyncState should marshal to {}, got %s", b)
	}
}

func TestRestoreStateDropsUnknownListNames(t *testing.T) {
	e := newTestEngine(nil)
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})

	rng := sync3.Range{0, 9}
	count := int64(50)
	e.RestoreState(SyncState{
		Lists: map[string]sync3.ListSnapshot{
			"rooms":   {Range: &rng, ServerRoomCount: &count},
			"unknown": {Range: &rng, ServerRoomCount: &count},
		},
	})

	if _, ok := e.GetList("unknown"); ok {
		t.Errorf("unknown list name should not have been created by RestoreState")
	}
	l, _ := e.GetList("rooms")
	if l.Ranges()[0] != rng {
		t.Errorf("known list should have been restored: got %v want %v", l.Ranges()[0], rng)
	}
}

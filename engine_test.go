package slidingsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matrix-org/sliding-sync-client/sync3"
)

// fakeTransport lets tests script a sequence of HTTP responses without a
// real network round trip, the same role httptest.Server/a stub client
// plays in the teacher's own handler tests.
type fakeTransport struct {
	do func(req *http.Request) (*http.Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f.do(req)
}

func jsonResponse(t *testing.T, status int, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("jsonResponse: %s", err)
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(b))),
	}
}

func newTestEngine(transport Transport) *Engine {
	return NewEngine(transport, DefaultConfig("conn-1"))
}

// TestGrowingListFiveTicksOverEngine drives S1 through the full engine, not
// just the bare List, to confirm BuildRequest/SyncOnce agree with the list's
// own windowing.
func TestGrowingListFiveTicksOverEngine(t *testing.T) {
	tick := 0
	e := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		var body sync3.RequestBody
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %s", err)
		}
		tick++
		rng := body.Lists["rooms"].Ranges[0]
		return jsonResponse(t, 200, sync3.RawResponse{
			Pos: "tok",
			Lists: map[string]sync3.ListResponse{
				"rooms": {Count: 50, Ops: []sync3.ListResponseOp{{Range: &rng}}},
			},
		}), nil
	}})
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})

	wantRanges := []sync3.Range{{0, 9}, {0, 19}, {0, 29}, {0, 39}, {0, 49}}
	for i, want := range wantRanges {
		update, err := e.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil)
		if err != nil {
			t.Fatalf("tick %d: SyncOnce: %s", i+1, err)
		}
		l, _ := e.GetList("rooms")
		got := l.Ranges()[0]
		if got != want {
			t.Fatalf("tick %d: list range = %v want %v", i+1, got, want)
		}
		if i == len(wantRanges)-1 && !update.IsFullySynced {
			t.Errorf("after final tick, expected IsFullySynced")
		}
	}
}

// TestTimeoutTransition is spec scenario S4.
func TestTimeoutTransition(t *testing.T) {
	var lastTimeout int64
	e := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		var body sync3.RequestBody
		json.NewDecoder(req.Body).Decode(&body)
		lastTimeout = *body.Timeout
		rng := body.Lists["rooms"].Ranges[0]
		return jsonResponse(t, 200, sync3.RawResponse{
			Pos: "tok",
			Lists: map[string]sync3.ListResponse{
				"rooms": {Count: 20, Ops: []sync3.ListResponseOp{{Range: &rng}}},
			},
		}), nil
	}})
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})

	body := e.BuildRequest(nil)
	if *body.Timeout != 2000 {
		t.Fatalf("before any response, timeout = %dms want 2000ms", *body.Timeout)
	}

	if _, err := e.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil); err != nil {
		t.Fatalf("tick 1: %s", err)
	}
	if lastTimeout != 2000 {
		t.Fatalf("tick 1 sent timeout=%dms want 2000ms", lastTimeout)
	}

	if _, err := e.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil); err != nil {
		t.Fatalf("tick 2: %s", err)
	}
	// The second tick's *request* still carries the pre-tick timeout (2000ms,
	// since the list wasn't fully_loaded until this tick's response arrived).
	if lastTimeout != 2000 {
		t.Fatalf("tick 2 request timeout=%dms want 2000ms", lastTimeout)
	}
	if !e.IsFullySynced() {
		t.Fatalf("after tick 2, engine should be fully synced")
	}
	body = e.BuildRequest(nil)
	if *body.Timeout != 30000 {
		t.Fatalf("tick 3 request timeout = %dms want 30000ms", *body.Timeout)
	}
}

// TestCursorExpiry is spec scenario S7.
func TestCursorExpiry(t *testing.T) {
	e := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, 400, sync3.RawResponse{ErrCode: sync3.ErrCodeUnknownPos, Error: "unknown pos"}), nil
	}})
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})

	pos := "old"
	e.cur.pos = &pos

	_, err := e.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil)
	var cursorExpired *CursorExpiredError
	if !errors.As(err, &cursorExpired) {
		t.Fatalf("expected CursorExpiredError, got %v (%T)", err, err)
	}
	if e.cur.pos != nil {
		t.Fatalf("pos should be reset after cursor expiry, got %v", *e.cur.pos)
	}

	body := e.BuildRequest(nil)
	if body.Pos != nil {
		t.Fatalf("next request should omit pos, got %v", *body.Pos)
	}
}

// TestPersistenceRoundTripResumesGrowingList is spec scenario S6.
func TestPersistenceRoundTripResumesGrowingList(t *testing.T) {
	tick := 0
	e1 := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		var body sync3.RequestBody
		json.NewDecoder(req.Body).Decode(&body)
		rng := body.Lists["rooms"].Ranges[0]
		tick++
		pos := "tok_1"
		var ext json.RawMessage
		if tick == 2 {
			pos = "tok_2"
			ext = json.RawMessage(`{"to_device":{"next_batch":"td_2"}}`)
		}
		return jsonResponse(t, 200, sync3.RawResponse{
			Pos: pos,
			Lists: map[string]sync3.ListResponse{
				"rooms": {Count: 50, Ops: []sync3.ListResponseOp{{Range: &rng}}},
			},
			Extensions: ext,
		}), nil
	}})
	e1.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})
	e1.EnableExtension("to_device")

	// Session 1 runs two ticks, reaching range [0, 19] per the scenario.
	for i := 0; i < 2; i++ {
		if _, err := e1.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil); err != nil {
			t.Fatalf("session 1 tick %d: %s", i+1, err)
		}
	}
	if l, _ := e1.GetList("rooms"); l.Ranges()[0] != (sync3.Range{0, 19}) {
		t.Fatalf("session 1 should reach [0, 19], got %v", l.Ranges()[0])
	}
	state := e1.ExportState()

	var capturedBody sync3.RequestBody
	e2 := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		json.NewDecoder(req.Body).Decode(&capturedBody)
		rng := capturedBody.Lists["rooms"].Ranges[0]
		return jsonResponse(t, 200, sync3.RawResponse{
			Pos: "tok_2",
			Lists: map[string]sync3.ListResponse{
				"rooms": {Count: 50, Ops: []sync3.ListResponseOp{{Range: &rng}}},
			},
		}), nil
	}})
	e2.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})
	e2.EnableExtension("to_device")
	e2.RestoreState(state)

	update, err := e2.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil)
	if err != nil {
		t.Fatalf("session 2: %s", err)
	}
	if update.Pos != "tok_2" {
		t.Fatalf("session 2 pos = %s want tok_2", update.Pos)
	}
	l, _ := e2.GetList("rooms")
	if got := l.Ranges()[0]; got != (sync3.Range{0, 29}) {
		t.Fatalf("session 2 list range = %v want [0, 29]", got)
	}
	if capturedBody.Extensions["to_device"] == nil {
		t.Fatalf("expected to_device extension on resumed request")
	}
	var td struct {
		Since string `json:"since"`
	}
	json.Unmarshal(capturedBody.Extensions["to_device"], &td)
	if td.Since != "td_2" {
		t.Fatalf("resumed to_device since = %s want td_2", td.Since)
	}
}

func TestMalformedResponseLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(`{"lists":{}}`))}, nil
	}})
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})

	pos := "stable"
	e.cur.pos = &pos

	_, err := e.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil)
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v (%T)", err, err)
	}
	if e.cur.pos == nil || *e.cur.pos != "stable" {
		t.Fatalf("pos should be untouched after malformed response, got %v", e.cur.pos)
	}
}

func TestUnknownListAndExtensionNamesAreIgnored(t *testing.T) {
	e := newTestEngine(&fakeTransport{do: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, 200, sync3.RawResponse{
			Pos: "tok",
			Lists: map[string]sync3.ListResponse{
				"rooms":   {Count: 10},
				"unknown": {Count: 5},
			},
			Extensions: json.RawMessage(`{"unknown_ext":{"enabled":true}}`),
		}), nil
	}})
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeGrowing, BatchSize: 10})

	update, err := e.SyncOnce(context.Background(), "https://hs.example", "tok123", "", nil)
	if err != nil {
		t.Fatalf("SyncOnce: %s", err)
	}
	if len(update.UpdatedLists) != 1 || update.UpdatedLists[0] != "rooms" {
		t.Fatalf("updated_lists = %v want [rooms]", update.UpdatedLists)
	}
}

func TestEngineEndToEndWithHTTPServer(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		var body sync3.RequestBody
		json.NewDecoder(r.Body).Decode(&body)
		rng := body.Lists["rooms"].Ranges[0]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sync3.RawResponse{
			Pos: "tok_1",
			Lists: map[string]sync3.ListResponse{
				"rooms": {Count: 5, Ops: []sync3.ListResponseOp{{Range: &rng}}},
			},
		})
	}))
	defer srv.Close()

	e := newTestEngine(NewHTTPTransport(srv.Client()))
	e.AddList("rooms", sync3.ListConfig{Mode: sync3.ListModeSelective, BatchSize: 1, InitialRanges: []sync3.Range{{0, 9}}})

	update, err := e.SyncOnce(context.Background(), srv.URL, "secret", "", nil)
	if err != nil {
		t.Fatalf("SyncOnce: %s", err)
	}
	if update.Pos != "tok_1" {
		t.Fatalf("pos = %s want tok_1", update.Pos)
	}
	if requests != 1 {
		t.Fatalf("expected exactly 1 request, got %d", requests)
	}
	if !update.IsFullySynced {
		t.Fatalf("selective list should be fully synced after first response")
	}
}

func TestEffectiveTimeoutSelection(t *testing.T) {
	if got := effectiveTimeout(false, 2*time.Second, 30*time.Second, nil, nil); got != 2*time.Second {
		t.Errorf("effectiveTimeout(false) = %v want 2s", got)
	}
	if got := effectiveTimeout(true, 2*time.Second, 30*time.Second, nil, nil); got != 30*time.Second {
		t.Errorf("effectiveTimeout(true) = %v want 30s", got)
	}
	override := 5 * time.Second
	if got := effectiveTimeout(false, 2*time.Second, 30*time.Second, &override, nil); got != override {
		t.Errorf("effectiveTimeout override not honoured: got %v want %v", got, override)
	}
}

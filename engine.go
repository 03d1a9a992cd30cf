package slidingsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matrix-org/sliding-sync-client/sync3"
	"github.com/matrix-org/sliding-sync-client/sync3/extensions"
)

// RequestOverrides lets a single SyncOnce call override the engine's
// configured timeouts or attach a presence directive, without disturbing the
// engine's persistent Config for subsequent ticks.
type RequestOverrides struct {
	CatchUpTimeout  *time.Duration
	LongPollTimeout *time.Duration
	SetPresence     *string
}

// Engine is the client-side sliding sync state machine: it owns the cursor,
// a named set of windowed Lists, explicit room subscriptions, and the
// extension registry, and drives one HTTP round trip per SyncOnce call.
//
// Engine is single-threaded and cooperative (spec.md §5): AddList,
// SubscribeToRooms, UnsubscribeFromRooms, EnableExtension, EnableAllExtensions
// and RestoreState must never be called while a SyncOnce call is in flight.
type Engine struct {
	transport Transport
	cfg       Config

	cur cursor

	listOrder []string
	lists     map[string]*sync3.List

	roomSubs map[string]sync3.RoomSubscription

	ext *extensions.Registry
}

// NewEngine constructs an Engine with no lists, no subscriptions and no
// extensions enabled.
func NewEngine(transport Transport, cfg Config) *Engine {
	return &Engine{
		transport: transport,
		cfg:       cfg,
		lists:     make(map[string]*sync3.List),
		roomSubs:  make(map[string]sync3.RoomSubscription),
		ext:       extensions.NewRegistry(),
	}
}

// AddList installs (or replaces) a named list. Its name becomes part of the
// engine's known-list set used to intersect server responses and persisted
// snapshots.
func (e *Engine) AddList(name string, cfg sync3.ListConfig) {
	if _, exists := e.lists[name]; !exists {
		e.listOrder = append(e.listOrder, name)
	}
	e.lists[name] = sync3.NewList(name, cfg)
}

// GetList returns a read-only handle to a known list. Callers must not
// invoke its mutating methods (HandleResponse, RestoreState) — only the
// engine does, as part of its single-threaded tick.
func (e *Engine) GetList(name string) (*sync3.List, bool) {
	l, ok := e.lists[name]
	return l, ok
}

// SubscribeToRooms adds or replaces an explicit room subscription for each id.
func (e *Engine) SubscribeToRooms(ids []string, sub sync3.RoomSubscription) {
	for _, id := range ids {
		e.roomSubs[id] = sub
	}
}

// UnsubscribeFromRooms removes any explicit subscription for each id.
func (e *Engine) UnsubscribeFromRooms(ids []string) {
	for _, id := range ids {
		delete(e.roomSubs, id)
	}
}

// EnableExtension installs a single named extension with its default config.
func (e *Engine) EnableExtension(name string) {
	e.ext.Enable(name)
}

// EnableAllExtensions installs exactly {e2ee, to_device, account_data,
// typing, receipts}.
func (e *Engine) EnableAllExtensions() {
	e.ext.EnableAll()
}

// IsFullySynced reports whether at least one list is known and every known
// list has reached fully_loaded.
func (e *Engine) IsFullySynced() bool {
	if len(e.listOrder) == 0 {
		return false
	}
	for _, name := range e.listOrder {
		if !e.lists[name].IsFullyLoaded() {
			return false
		}
	}
	return true
}

// timeoutFor resolves the effective request timeout for this tick, honouring
// any per-call override.
func (e *Engine) timeoutFor(overrides *RequestOverrides) time.Duration {
	var oc, ol *time.Duration
	if overrides != nil {
		oc, ol = overrides.CatchUpTimeout, overrides.LongPollTimeout
	}
	return effectiveTimeout(e.IsFullySynced(), e.cfg.CatchUpTimeout, e.cfg.LongPollTimeout, oc, ol)
}

// BuildRequest renders the wire request for this tick. It is the single
// authoritative call to each list's ComputeNextRange (via ToConfig) — the
// wire body and the engine's own notion of "what range did we just ask for"
// never diverge because nothing else calls ComputeNextRange.
func (e *Engine) BuildRequest(overrides *RequestOverrides) *sync3.RequestBody {
	e.ext.RefreshToDeviceSince(e.cur.toDeviceSince)

	listCfgs := make(map[string]sync3.RequestListConfig, len(e.listOrder))
	for _, name := range e.listOrder {
		listCfgs[name] = e.lists[name].ToConfig()
	}

	var subs map[string]sync3.RoomSubscription
	if len(e.roomSubs) > 0 {
		subs = make(map[string]sync3.RoomSubscription, len(e.roomSubs))
		for id, s := range e.roomSubs {
			subs[id] = s
		}
	}

	// Config's MarshalJSON implementations never error (they encode plain
	// bool/string fields), so the error here is unreachable in practice.
	extMap, _ := e.ext.MarshalMap()

	timeoutMs := e.timeoutFor(overrides).Milliseconds()

	body := &sync3.RequestBody{
		ConnID:            e.cfg.ConnID,
		Pos:               e.cur.pos,
		Timeout:           &timeoutMs,
		Lists:             listCfgs,
		RoomSubscriptions: subs,
		Extensions:        extMap,
	}
	if overrides != nil && overrides.SetPresence != nil {
		body.SetPresence = overrides.SetPresence
	}
	return body
}

// SyncOnce drives exactly one request/response cycle against homeserverURL.
// userID, if non-empty, enables left-room classification (spec.md §4.5).
func (e *Engine) SyncOnce(ctx context.Context, homeserverURL, accessToken, userID string, overrides *RequestOverrides) (*sync3.SyncUpdate, error) {
	body := e.BuildRequest(overrides)

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, newTransportFailureErr(err)
	}

	logger.Debug().Str("conn_id", e.cfg.ConnID).Msg(e.FormatRequestLog(body))

	reqURL := e.buildRequestURL(homeserverURL, body)

	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, reqURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, newTransportFailureErr(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := e.transport.Do(reqCtx, httpReq)
	if err != nil {
		return nil, newTransportFailureErr(err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportFailureErr(err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody sync3.RawResponse
		if jsonErr := json.Unmarshal(respBytes, &errBody); jsonErr == nil && errBody.ErrCode == sync3.ErrCodeUnknownPos {
			e.cur.reset()
			logger.Warn().Str("conn_id", e.cfg.ConnID).Msg("sliding sync cursor expired, resetting pos")
			return nil, newCursorExpiredError(errBody.ErrCode, errBody.Error)
		}
		return nil, newTransportFailureHTTP(resp.StatusCode, string(respBytes))
	}

	var raw sync3.RawResponse
	if err := json.Unmarshal(respBytes, &raw); err != nil {
		return nil, newMalformedResponseError("decoding response body: %s", err)
	}
	if raw.Pos == "" {
		return nil, newMalformedResponseError("response missing pos")
	}

	updatedLists := e.intersectKnownLists(raw.Lists)

	update, err := sync3.Classify(&raw, updatedLists, userID)
	if err != nil {
		return nil, newMalformedResponseError("classifying response: %s", err)
	}

	// Nothing above this line has mutated engine state, so a Malformed
	// error leaves pos/lists/to_device_since exactly as they were.
	for _, name := range updatedLists {
		e.lists[name].HandleResponse(raw.Lists[name])
	}
	pos := raw.Pos
	e.cur.pos = &pos
	if update.Extensions.ToDevice != nil && update.Extensions.ToDevice.NextBatch != "" {
		nextBatch := update.Extensions.ToDevice.NextBatch
		e.cur.toDeviceSince = &nextBatch
	}
	update.IsFullySynced = e.IsFullySynced()

	logger.Debug().Str("conn_id", e.cfg.ConnID).Msg(e.FormatResponseLog(&raw, update))

	return update, nil
}

// intersectKnownLists returns the engine's known list names that also
// appear in the response, in the engine's own insertion order so downstream
// logging and classification stay deterministic.
func (e *Engine) intersectKnownLists(respLists map[string]sync3.ListResponse) []string {
	var names []string
	for _, name := range e.listOrder {
		if _, ok := respLists[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// buildRequestURL renders the sliding sync endpoint with its query
// parameters, per spec.md §6.
func (e *Engine) buildRequestURL(homeserverURL string, body *sync3.RequestBody) string {
	u := fmt.Sprintf("%s/_matrix/client/unstable/org.matrix.msc4186/sync", homeserverURL)
	q := url.Values{}
	if body.Pos != nil {
		q.Set("pos", *body.Pos)
	}
	if body.Timeout != nil {
		q.Set("timeout", strconv.FormatInt(*body.Timeout, 10))
	}
	if body.SetPresence != nil {
		q.Set("set_presence", *body.SetPresence)
	}
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

package slidingsync

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/matrix-org/sliding-sync-client/sync3"
)

// FormatRequestLog renders a deterministic, multi-line trace of an outgoing
// request. Token shapes and ordering are pinned by spec.md §4.8 and are
// exercised directly by tests — do not reformat without checking those
// substrings still appear.
func (e *Engine) FormatRequestLog(body *sync3.RequestBody) string {
	var b strings.Builder
	b.WriteString(">>> REQUEST ")
	b.WriteString(fmt.Sprintf("conn_id=%s ", body.ConnID))
	b.WriteString(fmt.Sprintf("pos=%s ", posString(body.Pos)))
	if body.Timeout != nil {
		b.WriteString(fmt.Sprintf("timeout=%dms", *body.Timeout))
	}

	for _, name := range e.listOrder {
		cfg, ok := body.Lists[name]
		if !ok {
			continue
		}
		if len(cfg.Ranges) == 0 {
			b.WriteString(fmt.Sprintf("\n  list:%s range=none", name))
			continue
		}
		b.WriteString(fmt.Sprintf("\n  list:%s=%s", name, cfg.Ranges[0]))
	}

	if len(body.RoomSubscriptions) > 0 {
		ids := make([]string, 0, len(body.RoomSubscriptions))
		for id := range body.RoomSubscriptions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		b.WriteString(fmt.Sprintf("\n  subscriptions=%s", bracketed(ids)))
	}

	if names := e.ext.Names(); len(names) > 0 {
		b.WriteString(fmt.Sprintf("\n  extensions=%s", bracketed(names)))
	}

	return b.String()
}

// FormatResponseLog renders a deterministic, multi-line trace of a parsed
// response. Like FormatRequestLog, its token shapes are pinned by spec.md
// §4.8.
func (e *Engine) FormatResponseLog(raw *sync3.RawResponse, update *sync3.SyncUpdate) string {
	var b strings.Builder
	b.WriteString("<<< RESPONSE ")
	b.WriteString(fmt.Sprintf("pos=%s", raw.Pos))

	for _, name := range update.UpdatedLists {
		lr := raw.Lists[name]
		b.WriteString(fmt.Sprintf("\n  list:%s count=%d", name, lr.Count))
		for _, op := range lr.Ops {
			if op.Range != nil {
				b.WriteString(fmt.Sprintf(" range=%s", *op.Range))
			}
		}
	}
	for _, name := range e.listOrder {
		b.WriteString(fmt.Sprintf("\n  %s:%s", name, e.lists[name].LoadingState()))
	}

	numRooms := len(update.Rooms.Joined) + len(update.Rooms.Left)
	if numRooms > 0 {
		b.WriteString(fmt.Sprintf("\n  rooms=%d updated", numRooms))
	}
	invitedIDs := make([]string, 0, len(update.Rooms.Invited))
	for roomID := range update.Rooms.Invited {
		invitedIDs = append(invitedIDs, roomID)
	}
	sort.Strings(invitedIDs)
	for _, roomID := range invitedIDs {
		ru := update.Rooms.Invited[roomID]
		types := make([]string, 0, len(ru.InviteState))
		for _, ev := range ru.InviteState {
			types = append(types, eventType(ev))
		}
		b.WriteString(fmt.Sprintf("\n  invited:%s invite_state=%s", roomID, bracketed(types)))
	}

	writeExtensionsLog(&b, &update.Extensions)

	if update.IsFullySynced {
		b.WriteString(" [FULLY SYNCED]")
	}

	return b.String()
}

func writeExtensionsLog(b *strings.Builder, ext *sync3.ExtensionsUpdate) {
	if ext.ToDevice != nil {
		b.WriteString(fmt.Sprintf("\n  to_device: %d events, next_batch=%s", len(ext.ToDevice.Events), ext.ToDevice.NextBatch))
	}
	if ext.E2EE != nil {
		b.WriteString("\n  e2ee:")
		if ext.E2EE.DeviceLists != nil {
			b.WriteString(fmt.Sprintf(" changed=%d left=%d", len(ext.E2EE.DeviceLists.Changed), len(ext.E2EE.DeviceLists.Left)))
		}
	}
	if ext.AccountData != nil {
		b.WriteString(fmt.Sprintf("\n  account_data: global=%d rooms=%d", len(ext.AccountData.Global), len(ext.AccountData.Rooms)))
	}
	if ext.Typing != nil {
		b.WriteString(fmt.Sprintf("\n  typing: rooms=%d", len(ext.Typing.Rooms)))
	}
	if ext.Receipts != nil {
		b.WriteString(fmt.Sprintf("\n  receipts: rooms=%d", len(ext.Receipts.Rooms)))
	}
}

func posString(pos *string) string {
	if pos == nil {
		return "null"
	}
	return *pos
}

func bracketed(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// eventType pulls the "type" field out of a raw event for log rendering,
// without needing a full typed event model.
func eventType(raw []byte) string {
	type typed struct {
		Type string `json:"type"`
	}
	var t typed
	if err := json.Unmarshal(raw, &t); err != nil {
		return "?"
	}
	return t.Type
}

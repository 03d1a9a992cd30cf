package sync3

import "encoding/json"

// RequestFilters narrows which rooms a list considers. All fields are
// optional; a nil/zero field means "don't filter on this".
type RequestFilters struct {
	IsDM        *bool    `json:"is_dm,omitempty"`
	IsEncrypted *bool    `json:"is_encrypted,omitempty"`
	IsInvite    *bool    `json:"is_invite,omitempty"`
	Spaces      []string `json:"spaces,omitempty"`
	RoomTypes   []string `json:"room_types,omitempty"`
}

// RoomSubscription is the timeline/state shape attached to an explicitly
// subscribed room id.
type RoomSubscription struct {
	TimelineLimit int64       `json:"timeline_limit,omitempty"`
	RequiredState [][2]string `json:"required_state,omitempty"`
}

// RequestListConfig is the outgoing wire shape for one list, produced by
// List.ToConfig. Ranges is always present (possibly empty, meaning "this
// list has nothing to request right now").
type RequestListConfig struct {
	Ranges        []Range         `json:"ranges"`
	TimelineLimit int64           `json:"timeline_limit,omitempty"`
	RequiredState [][2]string     `json:"required_state,omitempty"`
	Filters       *RequestFilters `json:"filters,omitempty"`
}

// ListResponseOp is one entry in a per-list response's `ops` array. Only the
// `range` field is consulted by the engine; other MSC4186 op shapes (there
// is only SYNC in the current protocol) are not represented here.
type ListResponseOp struct {
	Range *Range `json:"range,omitempty"`
}

// ListResponse is the server's per-list reply: how many rooms it knows
// about in total, and zero or more ops carrying the range it materialized.
type ListResponse struct {
	Count int64            `json:"count"`
	Ops   []ListResponseOp `json:"ops"`
}

// Hero is a condensed member the server suggests using for a heroless room
// name. The engine forwards these verbatim; computing a name from them is
// explicitly out of scope (spec.md Non-goals).
type Hero struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// UnreadNotifications carries the two counters the classifier defaults to 0
// when the server omits them.
type UnreadNotifications struct {
	HighlightCount    int64 `json:"highlight_count"`
	NotificationCount int64 `json:"notification_count"`
}

// RawRoom is one entry of the response's `rooms` map, before classification.
type RawRoom struct {
	Name                string              `json:"name,omitempty"`
	Initial             bool                `json:"initial,omitempty"`
	Limited             bool                `json:"limited,omitempty"`
	PrevBatch           string              `json:"prev_batch,omitempty"`
	Timeline            []json.RawMessage   `json:"timeline,omitempty"`
	RequiredState       []json.RawMessage   `json:"required_state,omitempty"`
	InviteState         []json.RawMessage   `json:"invite_state,omitempty"`
	Heroes              []Hero              `json:"heroes,omitempty"`
	UnreadNotifications UnreadNotifications `json:"unread_notifications"`
	JoinedCount         *int64              `json:"joined_count,omitempty"`
	InvitedCount        *int64              `json:"invited_count,omitempty"`
	BumpStamp           *int64              `json:"bump_stamp,omitempty"`
	NumLive             *int64              `json:"num_live,omitempty"`
}

// RawResponse is the full decoded body of a sliding sync response, before
// the classifier has split rooms into joined/invited/left.
type RawResponse struct {
	Pos        string                  `json:"pos"`
	Lists      map[string]ListResponse `json:"lists,omitempty"`
	Rooms      map[string]RawRoom      `json:"rooms,omitempty"`
	Extensions json.RawMessage         `json:"extensions,omitempty"`
	Error      string                  `json:"error,omitempty"`
	ErrCode    string                  `json:"errcode,omitempty"`
}

// ErrCodeUnknownPos is the one errcode the engine treats semantically.
const ErrCodeUnknownPos = "M_UNKNOWN_POS"

// RequestBody is the JSON body the engine sends on every tick.
type RequestBody struct {
	ConnID            string                       `json:"conn_id"`
	Pos               *string                      `json:"pos,omitempty"`
	Timeout           *int64                       `json:"timeout,omitempty"`
	Lists             map[string]RequestListConfig `json:"lists"`
	RoomSubscriptions map[string]RoomSubscription  `json:"room_subscriptions,omitempty"`
	Extensions        map[string]json.RawMessage   `json:"extensions,omitempty"`
	// SetPresence is never marshaled into the request body: MSC4186 carries
	// it as a query parameter only (see buildRequestURL). The field lives
	// here purely so BuildRequest has one place to stash it en route to
	// the URL builder.
	SetPresence       *string                      `json:"-"`
}

package extensions

import "encoding/json"

// ReceiptsResponse is the decoded extensions.receipts section: raw m.receipt
// events, keyed by room id.
type ReceiptsResponse struct {
	Rooms map[string]json.RawMessage `json:"rooms,omitempty"`
}

func ParseReceiptsResponse(raw json.RawMessage) (*ReceiptsResponse, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var r ReceiptsResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

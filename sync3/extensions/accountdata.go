package extensions

import "encoding/json"

// AccountDataResponse is the decoded extensions.account_data section: global
// events plus per-room events, looked up by room id when the classifier
// merges them into room updates.
type AccountDataResponse struct {
	Global []json.RawMessage            `json:"global,omitempty"`
	Rooms  map[string][]json.RawMessage `json:"rooms,omitempty"`
}

func ParseAccountDataResponse(raw json.RawMessage) (*AccountDataResponse, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a AccountDataResponse
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

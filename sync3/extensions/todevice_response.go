package extensions

import "encoding/json"

// ToDeviceResponse is the decoded extensions.to_device section. NextBatch
// becomes the engine's new to_device_since once observed.
type ToDeviceResponse struct {
	NextBatch string            `json:"next_batch,omitempty"`
	Events    []json.RawMessage `json:"events,omitempty"`
}

func ParseToDeviceResponse(raw json.RawMessage) (*ToDeviceResponse, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var t ToDeviceResponse
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

package extensions

import "encoding/json"

// E2EEResponse is the decoded extensions.e2ee section: device list deltas
// and one-time-key bookkeeping. The engine forwards this verbatim; it never
// interprets or decrypts anything (spec.md Non-goals).
type E2EEResponse struct {
	DeviceLists              *DeviceLists     `json:"device_lists,omitempty"`
	DeviceOneTimeKeysCount   map[string]int64 `json:"device_one_time_keys_count,omitempty"`
	DeviceUnusedFallbackKeyTypes []string     `json:"device_unused_fallback_key_types,omitempty"`
}

// DeviceLists carries the changed/left user id lists for cross-signing device tracking.
type DeviceLists struct {
	Changed []string `json:"changed,omitempty"`
	Left    []string `json:"left,omitempty"`
}

func ParseE2EEResponse(raw json.RawMessage) (*E2EEResponse, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var e E2EEResponse
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

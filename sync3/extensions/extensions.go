// Package extensions holds the client-side configuration and wire shapes for
// the sliding sync protocol extensions (to-device, e2ee, account data,
// typing, receipts). Configuration is a tagged union at the Go type level:
// generic extensions carry only {enabled}, while to_device additionally
// carries a since-token. There is no open interface hierarchy for callers to
// extend — the set of extensions this engine understands is closed.
package extensions

import "encoding/json"

// Config is an enabled/disabled extension configuration that knows how to
// render its own wire shape.
type Config interface {
	Enabled() bool
	json.Marshaler
}

// CoreConfig is the {enabled} shape shared by e2ee, account_data, typing and
// receipts.
type CoreConfig struct {
	enabled bool
}

// NewCoreConfig returns a generic extension config in the given enabled state.
func NewCoreConfig(enabled bool) *CoreConfig {
	return &CoreConfig{enabled: enabled}
}

func (c *CoreConfig) Enabled() bool { return c.enabled }

func (c *CoreConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Enabled bool `json:"enabled"`
	}{c.enabled})
}

// ToDeviceConfig is the to_device extension's {enabled, since} shape. The
// since-token is a projection of the engine's cursor-controller state, not
// the source of truth — Engine.BuildRequest refreshes it (via
// Registry.RefreshToDeviceSince) from the engine's current to_device_since
// immediately before every request.
type ToDeviceConfig struct {
	enabled bool
	since   *string
}

// NewToDeviceConfig returns a to_device extension config snapshotting since.
func NewToDeviceConfig(enabled bool, since *string) *ToDeviceConfig {
	return &ToDeviceConfig{enabled: enabled, since: since}
}

func (c *ToDeviceConfig) Enabled() bool { return c.enabled }

// Since returns the snapshotted since-token, or nil if none is known yet.
func (c *ToDeviceConfig) Since() *string { return c.since }

// WithSince returns a copy of c with its since-token replaced.
func (c *ToDeviceConfig) WithSince(since *string) *ToDeviceConfig {
	return &ToDeviceConfig{enabled: c.enabled, since: since}
}

func (c *ToDeviceConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Enabled bool    `json:"enabled"`
		Since   *string `json:"since,omitempty"`
	}{c.enabled, c.since})
}

// Names of the extensions this engine understands. ToDevice is the only one
// with a bespoke config shape; the rest share CoreConfig.
const (
	ToDevice    = "to_device"
	E2EE        = "e2ee"
	AccountData = "account_data"
	Typing      = "typing"
	Receipts    = "receipts"
)

// AllNames is the fixed set EnableAll installs, in a stable order so request
// log rendering is deterministic.
var AllNames = []string{E2EE, ToDevice, AccountData, Typing, Receipts}

// Registry is the engine's name-keyed map of enabled extension configs. It
// preserves insertion order for deterministic log rendering, matching the
// teacher's convention that iteration order over lists and extensions
// mirrors insertion order.
type Registry struct {
	order   []string
	configs map[string]Config
}

// NewRegistry returns an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]Config)}
}

// Enable installs a config for name, defaulting to CoreConfig{enabled: true},
// except for ToDevice which gets a ToDeviceConfig with no since-token yet.
func (r *Registry) Enable(name string) {
	if _, ok := r.configs[name]; !ok {
		r.order = append(r.order, name)
	}
	if name == ToDevice {
		r.configs[name] = NewToDeviceConfig(true, nil)
		return
	}
	r.configs[name] = NewCoreConfig(true)
}

// EnableAll installs exactly the set {e2ee, to_device, account_data, typing,
// receipts}.
func (r *Registry) EnableAll() {
	for _, name := range AllNames {
		r.Enable(name)
	}
}

// Get returns the config for name, if installed.
func (r *Registry) Get(name string) (Config, bool) {
	c, ok := r.configs[name]
	return c, ok
}

// Names returns the installed extension names in insertion order.
func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

// Len reports how many extensions are installed.
func (r *Registry) Len() int {
	return len(r.configs)
}

// RefreshToDeviceSince updates the stored to_device config's since-token from
// the engine's current cursor-controller value. It is a no-op if to_device
// isn't enabled.
func (r *Registry) RefreshToDeviceSince(since *string) {
	cfg, ok := r.configs[ToDevice]
	if !ok {
		return
	}
	td, ok := cfg.(*ToDeviceConfig)
	if !ok {
		return
	}
	r.configs[ToDevice] = td.WithSince(since)
}

// MarshalMap renders the registry's configs, in insertion order, as raw JSON
// values suitable for embedding in the outgoing request body. Returns nil
// (not an empty map) when nothing is enabled, so callers can omit the field.
func (r *Registry) MarshalMap() (map[string]json.RawMessage, error) {
	if len(r.order) == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, len(r.order))
	for _, name := range r.order {
		b, err := r.configs[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		out[name] = b
	}
	return out, nil
}

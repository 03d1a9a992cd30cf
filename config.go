package slidingsync

import "time"

// Config is the engine's construction-time configuration: its connection id
// and the two timeouts the Cursor & Timeout Controller chooses between.
type Config struct {
	// ConnID identifies this sliding sync connection to the server. It must
	// be stable across ticks of the same session.
	ConnID string

	// CatchUpTimeout is the request timeout used while any list is still
	// loading (§4.2 effective_timeout).
	CatchUpTimeout time.Duration

	// LongPollTimeout is the request timeout used once every list is fully
	// loaded.
	LongPollTimeout time.Duration

	// RequestTimeout bounds how long the transport itself is allowed to take
	// for a single request. It is deliberately larger than LongPollTimeout so
	// the transport never times out before the server's own long-poll would
	// have returned.
	RequestTimeout time.Duration
}

// DefaultCatchUpTimeout and DefaultLongPollTimeout match the timeout
// transition exercised in spec.md §8 scenario S4.
const (
	DefaultCatchUpTimeout  = 2 * time.Second
	DefaultLongPollTimeout = 30 * time.Second
)

// DefaultConfig returns a Config with sane timeout defaults for connID.
func DefaultConfig(connID string) Config {
	return Config{
		ConnID:          connID,
		CatchUpTimeout:  DefaultCatchUpTimeout,
		LongPollTimeout: DefaultLongPollTimeout,
		RequestTimeout:  DefaultLongPollTimeout + 10*time.Second,
	}
}

package slidingsync

import (
	"os"

	"github.com/rs/zerolog"
)

// logger is the engine's operational logger, separate from the deterministic
// protocol log formatters in log.go. It follows the teacher's zerolog
// fluent-API convention (logger.Warn().Str(...).Msg(...)).
var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Str("component", "slidingsync").Logger()

// SetLogger replaces the package-level operational logger, e.g. to redirect
// it to a file or to match a host application's existing zerolog instance.
func SetLogger(l zerolog.Logger) {
	logger = l
}

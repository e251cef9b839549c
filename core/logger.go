package core

import (
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog.Logger for a Context. Unlike the package-init
// pattern it replaces (reading an env var once at import time and mutating
// zerolog's global level), this is a plain constructor: two Contexts built
// with different debug settings never race with each other.
func NewLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// DisabledLogger returns a Logger that discards everything, the default
// for Contexts that don't ask for build/query telemetry.
func DisabledLogger() zerolog.Logger {
	return zerolog.Nop()
}

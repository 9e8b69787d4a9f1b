// Package logging configures the process-wide zerolog root logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var root = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger()

// Init sets the global level. Call once from main before anything logs.
func Init(level string) {
	root = root.Level(parseLevel(level))
}

// Get returns the root logger.
func Get() zerolog.Logger {
	return root
}

// Named returns a child logger tagged with a component field.
func Named(component string) zerolog.Logger {
	if component == "" {
		return root
	}
	return root.With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

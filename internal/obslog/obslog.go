// Package obslog builds the zerolog.Logger every component in this module
// takes as a dependency. Centralizing construction here mirrors how the
// teacher repo centralizes slog setup in its own pkg/logger package, adapted
// to zerolog's structured-event style (the library other pack services —
// bdobrica/Ruriko, intelligencedev/manifold — reach for).
package obslog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Unrecognized values
	// fall back to "info".
	Level string
	// Pretty enables zerolog's human-readable console writer; otherwise logs
	// are newline-delimited JSON, suited to log aggregation.
	Pretty bool
	// Output is where log lines are written. Defaults to os.Stderr.
	Output io.Writer
}

// New builds a root zerolog.Logger from opts.
func New(opts Options) zerolog.Logger {
	level := parseLevel(opts.Level)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

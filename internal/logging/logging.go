package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Formats lists the accepted log formats.
var Formats = []string{"text", "json"}

// New returns a logger writing to w at the given level and format.
// A nil w writes to stderr. Unknown levels fall back to info and unknown
// formats to text; use [Validate] to reject them up front.
func New(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps debug, info, warn and error (case-insensitive) onto slog
// levels. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports whether level and format are recognised. Empty values
// are accepted and mean the defaults.
func Validate(level, format string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// Package logging configures the process-wide slog logger: level parsing,
// handler selection, and a custom trace level for wire-level forensics
// below Debug.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is a custom log level below Debug, used to log individual
// bytes moving to/from endpoints without drowning out Debug-level
// control-center decisions.
const LevelTrace = slog.Level(-8)

// ParseLevel converts a string to a slog.Level.
// Supported values: trace, debug, info, warn, error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: trace, debug, info, warn, error)", s)
	}
}

// replaceLevelNames customizes the level name for Trace in log output;
// slog has no built-in name for levels below Debug.
func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Options configures New.
type Options struct {
	Level  string // trace, debug, info, warn, error
	JSON   bool   // emit JSON lines instead of the default text handler
	Writer io.Writer
}

// New builds a *slog.Logger per Options. An invalid Level falls back to
// Info and returns the parse error so the caller can decide whether to
// treat it as fatal.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Writer, handlerOpts)
	}

	return slog.New(handler), err
}

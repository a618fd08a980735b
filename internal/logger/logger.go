// internal/logger/logger.go

// Package logger builds the process-wide structured logger
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects level and output format
type Options struct {
	Level  string
	Format string
}

// New creates a logger writing to stderr
func New(opts Options) *slog.Logger {
	return NewWithWriter(os.Stderr, opts)
}

// NewWithWriter creates a logger writing to w. Unknown levels fall back to info,
// unknown formats to text.
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(h)
}

// ParseLevel maps a level name to slog.Level
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

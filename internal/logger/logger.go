// Package logger builds the diagnostic logger for a run. The logger is
// passed to components explicitly; nothing here is global.
package logger

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Options configures New
type Options struct {
	// Format is "text" or "json".
	Format string
	Debug  bool
}

// New returns a logger writing to w. Every record carries a run_id that
// is unique per call.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler).With("run_id", uuid.NewString())
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

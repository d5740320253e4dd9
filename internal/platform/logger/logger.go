// Package logger builds the slog loggers shared by the gateway and ledgerd.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the level and encoding. Format "text" is meant for local
// runs; anything else logs JSON.
type Options struct {
	Level     string
	Format    string
	Component string
}

// New returns a structured logger on stdout. Unknown levels log at info.
func New(opts Options) *slog.Logger {
	return newTo(os.Stdout, opts)
}

func newTo(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "text") {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	log := slog.New(handler)
	if opts.Component != "" {
		log = log.With("component", opts.Component)
	}
	return log
}

func parseLevel(level string) slog.Level {
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

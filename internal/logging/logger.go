package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process-wide logger. Relay logs are shipped to a
// collector rather than read raw, so output is always structured JSON
// with source positions; the level string only tunes verbosity.
func NewLogger(level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	})
	return slog.New(h)
}

// ForComponent tags a child logger so every relay, consumer and store line
// carries which part of the process emitted it.
func ForComponent(base *slog.Logger, name string) *slog.Logger {
	return base.With("component", name)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Package log configures process-wide structured logging on top of slog.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a logger from the LOG_LEVEL and LOG_FORMAT environment
// variables and installs it as the process default. Unknown values fall
// back to info level and text output.
func Setup() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ForComponent returns the default logger tagged with a component field so
// long-running subsystems can be told apart in mixed output.
func ForComponent(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

func parseLevel(s string) slog.Level {
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

package logger

import (
	"log/slog"
	"os"
)

// New returns a slog.Logger for the given service name. Development gets
// human-readable output; everything else logs JSON.
func New(service, environment string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if environment == "development" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", service)
}

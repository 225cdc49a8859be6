// Package logger builds the process-wide slog logger. Compliance decisions are
// logged as structured JSON so audit tooling can consume them.
package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger. Development gets debug level; every
// other environment logs at info.
func New(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "vigorlog")
}

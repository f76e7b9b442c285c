package logger

import (
	"log/slog"
	"os"
)

// New returns the shared structured logger. Services receive it by injection,
// never through package globals.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

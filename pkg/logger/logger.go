package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib logger that forwards to base at info level, tagged
// with component. Third-party libraries that only accept *log.Logger use it.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelInfo)
}

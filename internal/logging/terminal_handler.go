package logging

import (
	"io"
	"log/slog"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// newTerminalHandler returns a coloured handler for interactive sessions.
// charmbracelet/log implements slog.Handler directly.
func newTerminalHandler(w io.Writer, level slog.Level, addSource bool) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		ReportCaller:    addSource,
		TimeFormat:      time.TimeOnly,
	})
}

package capture

import (
	"strings"

	"github.com/GriffinCanCode/beacon/internal/event"
)

// ConsoleWriter adapts an output stream into console-category events. It
// implements io.Writer so it can be teed next to the host's real output.
type ConsoleWriter struct {
	sink  Sink
	level string
}

// NewConsoleWriter creates a console observer tagging every write with the
// given level ("log", "warn", "error", ...).
func NewConsoleWriter(sink Sink, level string) *ConsoleWriter {
	return &ConsoleWriter{sink: sink, level: level}
}

// Write submits one console event per call. It never fails; the transport
// owns all drop decisions.
func (w *ConsoleWriter) Write(p []byte) (int, error) {
	message := strings.TrimRight(string(p), "\n")
	if message != "" {
		w.sink.Submit(event.CategoryConsole, map[string]any{
			"level":   w.level,
			"message": message,
		})
	}
	return len(p), nil
}

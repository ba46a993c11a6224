package capture

import (
	"github.com/GriffinCanCode/beacon/internal/event"
)

// Sink is the capability producers receive for submitting observations.
// It never blocks and never returns errors; the transport drops silently
// per its admission policy. Satisfied by *transport.Transport.
type Sink interface {
	Submit(category event.Category, payload map[string]any, correlationID ...string)
}

package trace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/GriffinCanCode/beacon/internal/id"
)

// Header is the W3C Trace Context propagation header name.
const Header = "traceparent"

const (
	version     = "00"
	traceIDLen  = 32
	spanIDLen   = 16
	zeroTraceID = "00000000000000000000000000000000"
	zeroSpanID  = "0000000000000000"
)

var (
	traceIDPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)
	spanIDPattern  = regexp.MustCompile(`^[a-f0-9]{16}$`)
)

// Context is a distributed-trace identity. ParentSpanID is only set when a
// context is derived in-process; Parse never recovers it from the wire.
type Context struct {
	TraceID      string `json:"trace_id"`
	SpanID       string `json:"span_id"`
	ParentSpanID string `json:"parent_span_id,omitempty"`
	Sampled      bool   `json:"sampled"`
}

// Seed carries externally supplied trace identity for Init. Absent fields
// are generated.
type Seed struct {
	TraceID      string
	ParentSpanID string
	Sampled      *bool
}

// Manager owns the current trace context for one transport instance.
type Manager struct {
	mu      sync.Mutex
	current *Context
}

// NewManager creates a manager with no current context.
func NewManager() *Manager {
	return &Manager{}
}

// Init sets the current context from the seed, generating any ids the seed
// does not supply. It always succeeds and overwrites any prior context.
func (m *Manager) Init(seed Seed) Context {
	traceID := seed.TraceID
	if traceID == "" {
		traceID = NewTraceID()
	}

	sampled := true
	if seed.Sampled != nil {
		sampled = *seed.Sampled
	}

	ctx := Context{
		TraceID:      traceID,
		SpanID:       NewSpanID(),
		ParentSpanID: seed.ParentSpanID,
		Sampled:      sampled,
	}

	m.mu.Lock()
	m.current = &ctx
	m.mu.Unlock()

	return ctx
}

// Current returns the current context, if one exists.
func (m *Manager) Current() (Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Context{}, false
	}
	return *m.current, true
}

// Child derives a new context from the current one: same trace id and
// sampling decision, fresh span id, parent set to the current span id.
// The current context is not mutated.
func (m *Manager) Child() (Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return Context{}, false
	}

	return Context{
		TraceID:      m.current.TraceID,
		SpanID:       NewSpanID(),
		ParentSpanID: m.current.SpanID,
		Sampled:      m.current.Sampled,
	}, true
}

// Format serializes a context to the traceparent wire form
// "00-{traceId}-{spanId}-{flags}".
func Format(ctx Context) string {
	flags := "00"
	if ctx.Sampled {
		flags = "01"
	}
	return fmt.Sprintf("%s-%s-%s-%s", version, ctx.TraceID, ctx.SpanID, flags)
}

// FormatCurrent serializes the current context, if one exists.
func (m *Manager) FormatCurrent() (string, bool) {
	ctx, ok := m.Current()
	if !ok {
		return "", false
	}
	return Format(ctx), true
}

// Parse decodes a traceparent header. Malformed headers are treated as
// absent, never as errors. The parent span id is not recoverable from the
// wire format, so the returned context never carries one.
func Parse(header string) (Context, bool) {
	parts := strings.Split(header, "-")
	if len(parts) != 4 {
		return Context{}, false
	}
	if parts[0] != version {
		return Context{}, false
	}

	traceID := parts[1]
	if !traceIDPattern.MatchString(traceID) || traceID == zeroTraceID {
		return Context{}, false
	}

	spanID := parts[2]
	if !spanIDPattern.MatchString(spanID) || spanID == zeroSpanID {
		return Context{}, false
	}

	flags, err := strconv.ParseUint(parts[3], 16, 8)
	if err != nil {
		return Context{}, false
	}

	return Context{
		TraceID: traceID,
		SpanID:  spanID,
		Sampled: flags&0x01 == 1,
	}, true
}

// Headers returns the propagation headers for an outgoing call: the
// traceparent entry when a current context exists, otherwise an empty map.
// Callers must not overwrite an already-present traceparent header.
func (m *Manager) Headers() map[string]string {
	headers := make(map[string]string)
	if value, ok := m.FormatCurrent(); ok {
		headers[Header] = value
	}
	return headers
}

// NewTraceID generates a 32-character hex trace id, regenerating on the
// reserved all-zero value.
func NewTraceID() string {
	for {
		v := id.RandomHex(traceIDLen)
		if v != zeroTraceID {
			return v
		}
	}
}

// NewSpanID generates a 16-character hex span id, regenerating on the
// reserved all-zero value.
func NewSpanID() string {
	for {
		v := id.RandomHex(spanIDLen)
		if v != zeroSpanID {
			return v
		}
	}
}

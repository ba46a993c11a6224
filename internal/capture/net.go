package capture

import (
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/logging"
	"github.com/GriffinCanCode/beacon/internal/trace"
)

// netTransport wraps an http.RoundTripper: it injects the traceparent header
// into outgoing requests and emits a network-category event per call.
type netTransport struct {
	sink   Sink
	traces *trace.Manager
	next   http.RoundTripper
	ignore []*regexp.Regexp
}

// NewRoundTripper wraps next (http.DefaultTransport when nil) for a host
// client. Requests whose URL matches an ignore pattern are passed through
// unobserved; this is how the host keeps its own telemetry endpoints out of
// the network stream.
func NewRoundTripper(sink Sink, traces *trace.Manager, next http.RoundTripper, ignoreURLs []string, log *logging.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &netTransport{
		sink:   sink,
		traces: traces,
		next:   next,
		ignore: compilePatterns(ignoreURLs, log),
	}
}

func (t *netTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()
	for _, p := range t.ignore {
		if p.MatchString(url) {
			return t.next.RoundTrip(req)
		}
	}

	// RoundTrippers must not mutate the caller's request
	out := req.Clone(req.Context())

	// idempotent injection: an already-present traceparent wins
	if t.traces != nil && out.Header.Get(trace.Header) == "" {
		for key, value := range t.traces.Headers() {
			out.Header.Set(key, value)
		}
	}

	correlationID := uuid.NewString()
	start := time.Now()
	resp, err := t.next.RoundTrip(out)
	duration := time.Since(start)

	payload := map[string]any{
		"method":      req.Method,
		"url":         url,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		payload["error"] = err.Error()
		payload["status"] = 0
	} else {
		payload["status"] = resp.StatusCode
	}
	t.sink.Submit(event.CategoryNetwork, payload, correlationID)

	return resp, err
}

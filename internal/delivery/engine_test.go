package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/resilience"
	"github.com/GriffinCanCode/beacon/internal/trace"
)

func testEngine(traces *trace.Manager) *Engine {
	return New(
		event.DeliveryContext{ProjectID: "proj-1", Environment: "test", Service: "checkout", Release: "1.2.3"},
		"sess_TEST",
		traces,
		nil,
		nil,
		Options{Timeout: 2 * time.Second},
	)
}

func testEvents() []event.Event {
	return []event.Event{
		{ID: "evt_1", Category: event.CategoryError, Timestamp: 1724572800000, SessionID: "sess_TEST", Payload: map[string]any{"message": "boom"}},
		{ID: "evt_2", Category: event.CategoryError, Timestamp: 1724572800001, SessionID: "sess_TEST", Payload: map[string]any{"message": "bang"}},
	}
}

func TestDeliverSuccess(t *testing.T) {
	var got struct {
		headers http.Header
		batch   event.Batch
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.batch))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	traces := trace.NewManager()
	traces.Init(trace.Seed{})

	engine := testEngine(traces)
	err := engine.Deliver(t.Context(), srv.URL, "secret-token", testEvents())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", got.headers.Get("Authorization"))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "sess_TEST", got.headers.Get("X-Session-Id"))

	parsed, ok := trace.Parse(got.headers.Get(trace.Header))
	require.True(t, ok, "traceparent header should carry the current context")
	current, _ := traces.Current()
	assert.Equal(t, current.TraceID, parsed.TraceID)

	require.Len(t, got.batch.Events, 2)
	assert.Equal(t, "evt_1", got.batch.Events[0].ID)
	assert.Equal(t, "proj-1", got.batch.Context.ProjectID)
	assert.Equal(t, "checkout", got.batch.Context.Service)
}

func TestDeliverWithoutTraceContext(t *testing.T) {
	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get(trace.Header)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// manager with no current context
	engine := testEngine(trace.NewManager())
	require.NoError(t, engine.Deliver(t.Context(), srv.URL, "secret-token", testEvents()))

	assert.Empty(t, traceparent)
}

func TestDeliverNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := testEngine(trace.NewManager())
	err := engine.Deliver(t.Context(), srv.URL, "secret-token", testEvents())
	assert.Error(t, err)
}

func TestDeliverNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	engine := testEngine(trace.NewManager())
	err := engine.Deliver(t.Context(), srv.URL, "secret-token", testEvents())
	assert.Error(t, err)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	engine := testEngine(trace.NewManager())
	for i := 0; i < 5; i++ {
		require.Error(t, engine.Deliver(t.Context(), srv.URL, "secret-token", testEvents()))
	}

	assert.Equal(t, resilience.StateOpen, engine.BreakerState(srv.URL))

	// open breaker still reports failure so the group requeues
	err := engine.Deliver(t.Context(), srv.URL, "secret-token", testEvents())
	assert.Error(t, err)
}

func TestBreakerIsolationAcrossDestinations(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	engine := testEngine(trace.NewManager())
	for i := 0; i < 5; i++ {
		require.Error(t, engine.Deliver(t.Context(), failing.URL, "token", testEvents()))
	}

	require.Equal(t, resilience.StateOpen, engine.BreakerState(failing.URL))

	// the healthy destination is untouched by the failing one's breaker
	assert.Equal(t, resilience.StateClosed, engine.BreakerState(healthy.URL))
	assert.NoError(t, engine.Deliver(t.Context(), healthy.URL, "token", testEvents()))
}

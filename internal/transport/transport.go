package transport

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/id"
	"github.com/GriffinCanCode/beacon/internal/logging"
	"github.com/GriffinCanCode/beacon/internal/monitoring"
	"github.com/GriffinCanCode/beacon/internal/routing"
)

// Deliverer sends one event batch to a single destination. Implemented by
// the delivery engine; replaced by fakes in tests.
type Deliverer interface {
	Deliver(ctx context.Context, endpoint, credential string, events []event.Event) error
}

// Trigger identifies what initiated a flush.
type Trigger string

const (
	TriggerSize      Trigger = "size"
	TriggerInterval  Trigger = "interval"
	TriggerHidden    Trigger = "hidden"
	TriggerTerminate Trigger = "terminate"
	TriggerManual    Trigger = "manual"
)

// Options tunes one transport instance.
type Options struct {
	// SessionID stamps every event; generated when empty.
	SessionID string
	// SampleRate admits performance events with this probability.
	// All other categories are always admitted.
	SampleRate float64
	// MaxBufferSize forces a flush once the buffer reaches this length.
	MaxBufferSize int
	// FlushInterval is the recurring flush cadence.
	FlushInterval time.Duration
	// SourceURL and UserAgent stamp every event with the host context.
	SourceURL string
	UserAgent string
	// Debug enables diagnostic logs for dropped events.
	Debug bool
}

// Transport owns the event buffer and the flush cycle. Producers only ever
// see Submit; the buffer is never exposed by reference.
type Transport struct {
	routes    *routing.Table
	engine    Deliverer
	metrics   *monitoring.Metrics
	log       *logging.Logger
	opts      Options
	sessionID string

	mu  sync.Mutex
	buf []event.Event

	// flushing serializes flushes: a flush that finds another in progress
	// becomes a no-op instead of double-sending.
	flushing atomic.Bool

	done     chan struct{}
	stopOnce sync.Once
}

type routedEvent struct {
	ev   event.Event
	dest routing.Destination
}

// New creates a transport. It does not start the flush timer; call Start.
func New(routes *routing.Table, engine Deliverer, metrics *monitoring.Metrics, log *logging.Logger, opts Options) *Transport {
	if opts.MaxBufferSize <= 0 {
		opts.MaxBufferSize = 50
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 10 * time.Second
	}
	if opts.SessionID == "" {
		opts.SessionID = id.NewSessionID().String()
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Transport{
		routes:    routes,
		engine:    engine,
		metrics:   metrics,
		log:       log.Component("transport"),
		opts:      opts,
		sessionID: opts.SessionID,
		done:      make(chan struct{}),
	}
}

// SessionID returns the session identifier stamped on every event.
func (t *Transport) SessionID() string {
	return t.sessionID
}

// Len returns the current buffer length.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

// Submit records one observation. It never blocks and never surfaces errors
// to the producer: undeliverable or sampled-out events are dropped silently.
func (t *Transport) Submit(category event.Category, payload map[string]any, correlationID ...string) {
	// sampling applies to the performance category only; whether that scope
	// is product policy or oversight is unconfirmed, so it is preserved as
	// observed
	if category == event.CategoryPerformance && rand.Float64() >= t.opts.SampleRate {
		t.metrics.RecordSampledOut()
		return
	}

	// a category nobody will ever deliver must not grow the buffer
	if _, ok := t.routes.EndpointFor(category); !ok {
		t.metrics.RecordDropped("no_destination", 1)
		if t.opts.Debug {
			t.log.Debug("event dropped: no destination configured",
				zap.String("category", category.String()),
			)
		}
		return
	}

	ev := event.Event{
		ID:        id.NewEventID().String(),
		Category:  category,
		Timestamp: time.Now().UnixMilli(),
		SourceURL: t.opts.SourceURL,
		UserAgent: t.opts.UserAgent,
		SessionID: t.sessionID,
		Payload:   payload,
	}
	if len(correlationID) > 0 {
		ev.CorrelationID = correlationID[0]
	}

	t.mu.Lock()
	t.buf = append(t.buf, ev)
	size := len(t.buf)
	t.mu.Unlock()

	t.metrics.RecordSubmitted(category.String())
	t.metrics.SetBufferSize(size)

	if size >= t.opts.MaxBufferSize {
		go t.flush(context.Background(), TriggerSize)
	}
}

// Start launches the recurring flush timer.
func (t *Transport) Start() {
	go func() {
		ticker := time.NewTicker(t.opts.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.flush(context.Background(), TriggerInterval)
			case <-t.done:
				return
			}
		}
	}()
}

// NotifyHidden flushes without awaiting, for the host signaling it is being
// backgrounded. The host runtime may terminate before the send completes;
// that loss window is accepted.
func (t *Transport) NotifyHidden() {
	go t.flush(context.Background(), TriggerHidden)
}

// Flush drains the buffer synchronously. Used by tests and by callers that
// want a checkpoint between submissions.
func (t *Transport) Flush(ctx context.Context) {
	t.flush(ctx, TriggerManual)
}

// Shutdown stops the flush timer and performs one final synchronous flush,
// bounded by ctx.
func (t *Transport) Shutdown(ctx context.Context) {
	t.stopOnce.Do(func() {
		close(t.done)
	})
	t.flush(ctx, TriggerTerminate)
}

// flush atomically snapshots the buffer, partitions it by destination, and
// dispatches one independent delivery per endpoint. Events of failed groups
// are prepended back onto the live buffer in their original relative order,
// ahead of anything submitted while the flush ran.
func (t *Transport) flush(ctx context.Context, trigger Trigger) {
	if !t.flushing.CompareAndSwap(false, true) {
		return
	}
	defer t.flushing.Store(false)

	t.mu.Lock()
	snapshot := t.buf
	t.buf = nil
	t.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	t.metrics.RecordFlush(string(trigger))

	routed := make([]routedEvent, 0, len(snapshot))
	groups := make(map[string][]event.Event)
	credentials := make(map[string]string)
	for _, ev := range snapshot {
		dest, ok := t.routes.Resolve(ev.Category)
		if !ok {
			// configuration changed between submit and flush; there is no
			// destination to retry against
			t.metrics.RecordDropped("unroutable_at_flush", 1)
			if t.opts.Debug {
				t.log.Debug("event discarded at flush: destination no longer configured",
					zap.String("category", ev.Category.String()),
					zap.String("event_id", ev.ID),
				)
			}
			continue
		}
		routed = append(routed, routedEvent{ev: ev, dest: dest})
		groups[dest.Endpoint] = append(groups[dest.Endpoint], ev)
		credentials[dest.Endpoint] = dest.Credential
	}

	if len(groups) == 0 {
		t.metrics.SetBufferSize(t.Len())
		return
	}

	// one independent delivery per destination; an outage in one must not
	// lose telemetry destined elsewhere
	var wg sync.WaitGroup
	var failedMu sync.Mutex
	failed := make(map[string]bool)

	for endpoint, events := range groups {
		wg.Add(1)
		go func(endpoint string, events []event.Event) {
			defer wg.Done()
			if err := t.engine.Deliver(ctx, endpoint, credentials[endpoint], events); err != nil {
				failedMu.Lock()
				failed[endpoint] = true
				failedMu.Unlock()
				t.log.Warn("delivery failed, events requeued",
					zap.String("endpoint", endpoint),
					zap.Int("events", len(events)),
					zap.Error(err),
				)
			}
		}(endpoint, events)
	}
	wg.Wait()

	if len(failed) > 0 {
		requeue := make([]event.Event, 0)
		for _, r := range routed {
			if failed[r.dest.Endpoint] {
				requeue = append(requeue, r.ev)
			}
		}

		t.mu.Lock()
		t.buf = append(requeue, t.buf...)
		size := len(t.buf)
		t.mu.Unlock()

		for endpoint := range failed {
			t.metrics.RecordRequeued(endpoint, len(groups[endpoint]))
		}
		t.metrics.SetBufferSize(size)
		return
	}

	t.metrics.SetBufferSize(t.Len())
}

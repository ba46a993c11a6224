package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/logging"
	"github.com/GriffinCanCode/beacon/internal/monitoring"
	"github.com/GriffinCanCode/beacon/internal/resilience"
	"github.com/GriffinCanCode/beacon/internal/trace"
)

// Options tunes the delivery client.
type Options struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration
	// UserAgent is sent on every delivery request.
	UserAgent string
	// RatePerSecond caps outgoing deliveries across all destinations.
	// Zero means unlimited.
	RatePerSecond float64
}

// Engine performs the per-destination network send. It never retries
// internally; a failed group is requeued by the transport and retried on the
// next flush cycle, which bounds retry frequency without backoff state.
type Engine struct {
	client    *resty.Client
	limiter   *rate.Limiter
	traces    *trace.Manager
	dctx      event.DeliveryContext
	sessionID string
	metrics   *monitoring.Metrics
	log       *logging.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
}

// New creates a delivery engine for one transport instance.
func New(dctx event.DeliveryContext, sessionID string, traces *trace.Manager, metrics *monitoring.Metrics, log *logging.Logger, opts Options) *Engine {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "beacon-agent/1.0"
	}
	if log == nil {
		log = logging.NewNop()
	}

	// retry is requeue: the client itself must never retry
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	return &Engine{
		client:    client,
		limiter:   limiter,
		traces:    traces,
		dctx:      dctx,
		sessionID: sessionID,
		metrics:   metrics,
		log:       log.Component("delivery"),
		breakers:  make(map[string]*resilience.Breaker),
	}
}

// Deliver sends one event batch to a single destination. It returns an error
// on any network failure or non-success status; the whole group is then
// retried as a unit by the caller. Sibling destinations are never affected.
func (e *Engine) Deliver(ctx context.Context, endpoint, credential string, events []event.Event) error {
	breaker := e.breakerFor(endpoint)
	generation, err := breaker.Allow()
	if err != nil {
		e.metrics.RecordDelivery(endpoint, "breaker_open", len(events), 0)
		return fmt.Errorf("delivery to %s short-circuited: %w", endpoint, err)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		breaker.Record(generation, false)
		e.metrics.RecordDelivery(endpoint, "failure", len(events), 0)
		return fmt.Errorf("delivery to %s canceled: %w", endpoint, err)
	}

	body, err := sonic.Marshal(event.Batch{Events: events, Context: e.dctx})
	if err != nil {
		// encoding failure is not the destination's fault
		breaker.Record(generation, true)
		e.metrics.RecordDelivery(endpoint, "encode_error", len(events), 0)
		return fmt.Errorf("failed to encode batch for %s: %w", endpoint, err)
	}

	req := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+credential).
		SetHeader("X-Session-Id", e.sessionID).
		SetBody(body)

	// idempotent trace injection: never overwrite a caller-set header
	if e.traces != nil && req.Header.Get(trace.Header) == "" {
		for key, value := range e.traces.Headers() {
			req.SetHeader(key, value)
		}
	}

	start := time.Now()
	resp, err := req.Post(endpoint)
	duration := time.Since(start)

	success := err == nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300
	breaker.Record(generation, success)

	if !success {
		e.metrics.RecordDelivery(endpoint, "failure", len(events), duration)
		if err != nil {
			e.log.Debug("delivery failed",
				zap.String("endpoint", endpoint),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
			return fmt.Errorf("delivery to %s failed: %w", endpoint, err)
		}
		e.log.Debug("delivery rejected",
			zap.String("endpoint", endpoint),
			zap.Int("events", len(events)),
			zap.Int("status", resp.StatusCode()),
		)
		return fmt.Errorf("delivery to %s rejected with status %d", endpoint, resp.StatusCode())
	}

	e.metrics.RecordDelivery(endpoint, "success", len(events), duration)
	e.log.Debug("batch delivered",
		zap.String("endpoint", endpoint),
		zap.Int("events", len(events)),
		zap.Duration("duration", duration),
	)
	return nil
}

// BreakerState reports the breaker state for a destination, for the status
// endpoint.
func (e *Engine) BreakerState(endpoint string) resilience.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[endpoint]; ok {
		return b.State()
	}
	return resilience.StateClosed
}

func (e *Engine) breakerFor(endpoint string) *resilience.Breaker {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[endpoint]; ok {
		return b
	}

	b := resilience.New(endpoint, resilience.Settings{
		MaxProbes: 1,
		Interval:  60 * time.Second,
		Timeout:   30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			e.log.Warn("destination breaker state changed",
				zap.String("endpoint", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	e.breakers[endpoint] = b
	return b
}

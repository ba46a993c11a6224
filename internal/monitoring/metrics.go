package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the transport pipeline.
// A nil *Metrics is valid; every recording method is a no-op on it, so the
// transport can run uninstrumented in tests.
type Metrics struct {
	EventsSubmitted  *prometheus.CounterVec
	EventsSampledOut prometheus.Counter
	EventsDropped    *prometheus.CounterVec
	EventsDelivered  *prometheus.CounterVec
	EventsRequeued   *prometheus.CounterVec

	Deliveries       *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec

	Flushes    *prometheus.CounterVec
	BufferSize prometheus.Gauge
}

// New creates metrics registered against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_events_submitted_total",
				Help: "Events accepted into the buffer",
			},
			[]string{"category"},
		),
		EventsSampledOut: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_events_sampled_out_total",
				Help: "Performance events rejected by the sample rate",
			},
		),
		EventsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_events_dropped_total",
				Help: "Events discarded without delivery",
			},
			[]string{"reason"},
		),
		EventsDelivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_events_delivered_total",
				Help: "Events acknowledged by a destination",
			},
			[]string{"endpoint"},
		),
		EventsRequeued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_events_requeued_total",
				Help: "Events returned to the buffer after a failed delivery",
			},
			[]string{"endpoint"},
		),
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_deliveries_total",
				Help: "Delivery attempts per destination",
			},
			[]string{"endpoint", "status"},
		),
		DeliveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_delivery_duration_seconds",
				Help:    "Delivery request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
		Flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_flushes_total",
				Help: "Flush operations by trigger",
			},
			[]string{"trigger"},
		),
		BufferSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_buffer_size",
				Help: "Events currently buffered",
			},
		),
	}
}

// NewDefault creates metrics on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// RecordSubmitted records an event accepted into the buffer.
func (m *Metrics) RecordSubmitted(category string) {
	if m == nil {
		return
	}
	m.EventsSubmitted.WithLabelValues(category).Inc()
}

// RecordSampledOut records a performance event rejected by sampling.
func (m *Metrics) RecordSampledOut() {
	if m == nil {
		return
	}
	m.EventsSampledOut.Inc()
}

// RecordDropped records events discarded without delivery.
func (m *Metrics) RecordDropped(reason string, count int) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Add(float64(count))
}

// RecordDelivery records a delivery attempt and its event outcome.
func (m *Metrics) RecordDelivery(endpoint, status string, count int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(endpoint, status).Inc()
	m.DeliveryDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if status == "success" {
		m.EventsDelivered.WithLabelValues(endpoint).Add(float64(count))
	}
}

// RecordRequeued records events returned to the buffer.
func (m *Metrics) RecordRequeued(endpoint string, count int) {
	if m == nil {
		return
	}
	m.EventsRequeued.WithLabelValues(endpoint).Add(float64(count))
}

// RecordFlush records a flush operation.
func (m *Metrics) RecordFlush(trigger string) {
	if m == nil {
		return
	}
	m.Flushes.WithLabelValues(trigger).Inc()
}

// SetBufferSize records the current buffer length.
func (m *Metrics) SetBufferSize(n int) {
	if m == nil {
		return
	}
	m.BufferSize.Set(float64(n))
}

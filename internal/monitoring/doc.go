// Package monitoring exposes Prometheus metrics for the transport pipeline:
// submission, sampling, drops, flushes, deliveries, and requeues.
package monitoring

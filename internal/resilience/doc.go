// Package resilience implements a per-destination circuit breaker for the
// delivery engine. An open breaker surfaces as an ordinary delivery failure,
// which keeps the requeue semantics of the transport intact while bounding
// pressure on an unreachable destination.
package resilience

// Package delivery implements the per-destination network send: one POST per
// endpoint group with bearer authentication, session and trace headers, and a
// circuit breaker per destination. Failure of one destination never blocks or
// fails another; retry is achieved purely by the transport requeuing events.
package delivery

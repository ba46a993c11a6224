// Package trace maintains the agent's distributed-trace identity and the
// W3C traceparent wire format used to correlate client-side operations with
// server-side traces.
package trace

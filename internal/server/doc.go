// Package server exposes the agent's local debug surface: /healthz,
// /metrics (Prometheus), and /status. It is observability for the agent
// itself and plays no role in event delivery.
package server

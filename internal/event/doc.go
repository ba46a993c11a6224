// Package event defines the telemetry data model shared by the transport,
// routing, and delivery layers: event records, their categories, and the
// batch envelope sent over the wire.
package event

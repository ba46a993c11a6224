// Package routing resolves event categories to ingestion destinations,
// preferring per-category configuration and falling back to the legacy
// single endpoint/credential pair.
package routing

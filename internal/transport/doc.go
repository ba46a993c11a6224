// Package transport implements the event buffer and batcher: sampling and
// admission on submit, bounded buffering with size/timer/lifecycle flush
// triggers, partitioning by destination, and requeue of undelivered events
// for the next flush cycle. Delivery is at-least-once; producers are never
// blocked and never see transport failures.
package transport

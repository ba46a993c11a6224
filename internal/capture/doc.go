// Package capture provides the producer-side shims at the observation
// boundary: the Sink capability handed to producers, plus thin observers for
// runtime errors, console output, and outgoing HTTP calls. Interception of
// language globals is a hosting-runtime concern; in Go the host wires these
// adapters in explicitly. No ordering, concurrency, or recovery decisions
// live here; everything funnels into the transport's Submit contract.
package capture

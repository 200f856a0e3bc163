// Package patch models edit requests against a single base revision and
// prepares them for dispatch as a validated batch.
//
// A Request addresses a half-open span [Start, End) of the base text (or a
// single insertion offset for asset inserts) and carries the free-text
// instruction describing how the span should be rewritten. The Queue enforces
// span validity and pairwise non-overlap at Add time, offers proximity
// grouping for presentation, and snapshots queued requests into a Batch.
//
// Offsets are only meaningful relative to the base text they were recorded
// against. PrepareBatch re-checks each request's recorded selection against
// the live text and excludes drifted requests with a StaleError, so a batch
// never dispatches spans that no longer mean what the author marked.
package patch

// Package session owns the per-document editing lifecycle: live text edits
// with debounced checkpointing, span marking, and staged patch transactions.
//
// A Session wraps one document. Caller edits update the live text and arm a
// debounced checkpoint; a quiet period produces a new immutable revision.
// Marked spans accumulate in a request queue addressed against the live text.
//
// Propose stages the queue as a Transaction: the queue is validated and
// snapshotted against the head revision, and the reconciliation runner
// produces a candidate text that the caller must explicitly Accept or
// Discard. At most one transaction is open per session; while one is open,
// direct edits and checkpointing are suspended so the base text cannot drift
// under the running batch. Accept writes exactly one new revision; Discard
// leaves the document byte-for-byte as it was.
package session

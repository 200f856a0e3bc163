// Package reconcile drives one patch batch through the external rewrite
// collaborator and composes the candidate text.
//
// A Runner processes its batch's requests strictly sequentially in ascending
// start-offset order. Each request's replacement is spliced into the evolving
// text before the next request is dispatched, so later rewrites see earlier
// replacements in their surrounding context. Because application is
// sequential and spans are pairwise non-overlapping, a running length delta
// is the only offset bookkeeping required.
//
// Request lifecycle: pending -> dispatched -> streaming -> resolved, or
// -> failed from dispatched or streaming. Batch lifecycle: idle -> running ->
// completed or aborted. Each transition is observable on the event bus.
//
// Failure is all-or-nothing at batch granularity: the first failed request
// aborts the remaining queue and discards all partial progress, so a caller
// never sees a half-applied batch. Partially rewritten documents would leave
// critique spans pointing at text that no longer exists, which is worse than
// retrying the whole batch.
package reconcile

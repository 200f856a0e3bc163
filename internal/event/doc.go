// Package event provides the engine's topic-based event bus.
//
// The patch engine reports progress to subscribers rather than to a concrete
// UI: every request dispatch, streamed fragment, resolution, failure, and
// transaction outcome is published as an Event on a hierarchical topic.
// Subscribers register handlers against exact topics or wildcard patterns
// ("patch.request.*", "session.**").
//
// Delivery is synchronous and in publish order. Handlers run in the
// publisher's goroutine; a panicking handler is isolated and reported through
// the bus's panic hook so one misbehaving subscriber cannot take down a
// running batch.
package event

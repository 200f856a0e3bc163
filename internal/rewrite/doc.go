// Package rewrite defines the external collaborator contracts the patch
// engine consumes: streaming span rewriting, suggestion generation, and
// image-asset generation and persistence.
//
// The engine never talks to a model provider directly. It holds a [Rewriter]
// and pulls replacement text fragment by fragment from the returned [Stream],
// honoring context cancellation for mid-stream aborts. Provider adapters live
// in the subpackages anthropic, openai, and gemini; mock provides in-process
// test doubles.
//
// Provider failures of any shape are wrapped as *UpstreamError so callers can
// classify them with errors.Is(err, ErrUpstream) without losing the original
// message.
package rewrite

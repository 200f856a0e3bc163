// Package text provides pure offset arithmetic over immutable document text.
//
// All functions in this package are deterministic and allocation-light. They
// operate on plain strings: document revisions are immutable snapshots, so a
// string is the natural carrier and the caller never observes mutation.
//
// Offsets are byte offsets. Spans are half-open ranges [start, end). Lines are
// 1-based, matching what editors present to users.
//
// The package has two halves:
//
//   - Coordinate mapping: [OffsetToLine], [LineToOffset], [LineStart], and
//     [ContextWindow] convert between offsets and lines and extract bounded
//     context around a span.
//
//   - Splicing: [ReplaceSpan] and [InsertBlock] produce new text from old text
//     plus a replacement, preserving every byte outside the edited span.
//
// Splicing validates its span against the invariant 0 ≤ start ≤ end ≤ len(text)
// and returns ErrRangeInvalid when it is violated. Callers are expected to have
// validated spans long before splicing, so ErrRangeInvalid in practice signals
// a bookkeeping bug upstream, not bad user input.
package text

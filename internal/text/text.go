package text

import (
	"errors"
	"strings"
)

// ErrRangeInvalid is returned when a span violates 0 <= start <= end <= len(text).
var ErrRangeInvalid = errors.New("invalid text range")

// OffsetToLine returns the 1-based line number containing the byte offset.
// Offsets past the end of the text clamp to the last line.
func OffsetToLine(text string, offset int) int {
	if offset < 0 {
		return 1
	}
	if offset > len(text) {
		offset = len(text)
	}
	return strings.Count(text[:offset], "\n") + 1
}

// LineToOffset returns the byte offset of the start of the 1-based line.
// Lines past the end of the text clamp to len(text).
func LineToOffset(text string, line int) int {
	if line <= 1 {
		return 0
	}
	offset := 0
	for l := 1; l < line; l++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	return offset
}

// LineStart returns the offset of the start of the line containing offset,
// scanning backward to the nearest preceding newline or position 0.
func LineStart(text string, offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	if i := strings.LastIndexByte(text[:offset], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// ContextWindow returns up to radius bytes of text before start and after end,
// clamped to the bounds of the text. It never fails: out-of-range inputs are
// clamped rather than rejected, since context extraction is best-effort.
func ContextWindow(text string, start, end, radius int) (before, after string) {
	if start < 0 {
		start = 0
	}
	if start > len(text) {
		start = len(text)
	}
	if end < start {
		end = start
	}
	if end > len(text) {
		end = len(text)
	}
	if radius < 0 {
		radius = 0
	}

	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:start], text[end:hi]
}

// ReplaceSpan returns text with [start, end) replaced by replacement.
// Bytes outside the span are preserved exactly.
func ReplaceSpan(text string, start, end int, replacement string) (string, error) {
	if start < 0 || start > end || end > len(text) {
		return "", ErrRangeInvalid
	}

	var b strings.Builder
	b.Grow(len(text) - (end - start) + len(replacement))
	b.WriteString(text[:start])
	b.WriteString(replacement)
	b.WriteString(text[end:])
	return b.String(), nil
}

// InsertBlock inserts block into text as its own paragraph. The insertion
// point is normalized to the start of the line containing offset, so a block
// never merges into the middle of a prose line. A blank line separates the
// block from surrounding text on both sides, except at position 0 where no
// leading blank is added.
//
// Returns the new text and the offset at which the block was placed.
func InsertBlock(text string, offset int, block string) (string, int) {
	anchor := LineStart(text, offset)

	var b strings.Builder
	b.Grow(len(text) + len(block) + 4)
	b.WriteString(text[:anchor])

	placed := b.Len()
	if anchor > 0 && !strings.HasSuffix(text[:anchor], "\n\n") {
		b.WriteString("\n")
		placed = b.Len()
	}
	b.WriteString(block)
	b.WriteString("\n\n")
	b.WriteString(text[anchor:])

	return b.String(), placed
}

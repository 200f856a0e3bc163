// Package topic defines hierarchical event topics with dot notation.
package topic

import "strings"

// Topic represents a hierarchical event type using dot notation.
// Examples: "patch.request.dispatched", "session.transaction.accepted".
type Topic string

// Wildcard constants for pattern matching.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more trailing segments.
	WildcardMulti = "**"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsPattern reports whether the topic contains wildcards.
func (t Topic) IsPattern() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// Match reports whether a concrete topic matches this pattern. A pattern
// without wildcards matches only itself. "*" matches one segment; a trailing
// "**" matches any remainder, including none.
func (t Topic) Match(concrete Topic) bool {
	if !t.IsPattern() {
		return t == concrete
	}

	pat := t.Segments()
	got := concrete.Segments()

	for i, seg := range pat {
		if seg == WildcardMulti {
			return i == len(pat)-1
		}
		if i >= len(got) {
			return false
		}
		if seg != WildcardSingle && seg != got[i] {
			return false
		}
	}
	return len(pat) == len(got)
}

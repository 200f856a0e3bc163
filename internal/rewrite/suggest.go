package rewrite

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Suggestion is one validated critique item produced by a suggestion pass.
type Suggestion struct {
	// Excerpt is the document text the critique refers to.
	Excerpt string

	// Critique is the suggested improvement, phrased as an instruction.
	Critique string
}

// ParseSuggestions extracts a schema-validated suggestion list from raw model
// output. The output must contain a JSON array of objects with non-empty
// string fields "excerpt" and "critique"; surrounding prose and markdown
// fences are tolerated, but a missing, malformed, or empty list is an
// *UpstreamError. There is no canned fallback: a response the schema cannot
// validate is a visible provider failure.
func ParseSuggestions(provider, raw string) ([]Suggestion, error) {
	payload := extractArray(raw)
	if payload == "" {
		return nil, &UpstreamError{
			Provider: provider,
			Message:  "suggestion response contains no JSON array",
		}
	}

	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		return nil, &UpstreamError{
			Provider: provider,
			Message:  "suggestion response is not a JSON array",
		}
	}

	var (
		out []Suggestion
		bad bool
	)
	parsed.ForEach(func(_, item gjson.Result) bool {
		excerpt := item.Get("excerpt")
		critique := item.Get("critique")
		if excerpt.Type != gjson.String || critique.Type != gjson.String ||
			excerpt.Str == "" || critique.Str == "" {
			bad = true
			return false
		}
		out = append(out, Suggestion{Excerpt: excerpt.Str, Critique: critique.Str})
		return true
	})

	if bad {
		return nil, &UpstreamError{
			Provider: provider,
			Message:  "suggestion item missing excerpt or critique",
		}
	}
	if len(out) == 0 {
		return nil, &UpstreamError{
			Provider: provider,
			Message:  "suggestion list is empty",
		}
	}
	return out, nil
}

// extractArray returns the first top-level JSON array in raw, tolerating
// markdown code fences and surrounding prose. Returns "" when no balanced
// array is present.
func extractArray(raw string) string {
	start := strings.IndexByte(raw, '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

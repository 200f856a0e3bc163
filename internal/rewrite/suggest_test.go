package rewrite

import (
	"errors"
	"testing"
)

func TestParseSuggestions(t *testing.T) {
	raw := `[{"excerpt": "the quick fox", "critique": "use a stronger verb"},
	         {"excerpt": "lazy dog", "critique": "cut the cliché"}]`

	got, err := ParseSuggestions("mock", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(got))
	}
	if got[0].Excerpt != "the quick fox" || got[1].Critique != "cut the cliché" {
		t.Errorf("unexpected suggestions: %+v", got)
	}
}

func TestParseSuggestionsFenced(t *testing.T) {
	raw := "Here are my suggestions:\n```json\n[{\"excerpt\": \"a\", \"critique\": \"b\"}]\n```\nHope that helps!"

	got, err := ParseSuggestions("mock", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].Excerpt != "a" {
		t.Errorf("unexpected suggestions: %+v", got)
	}
}

func TestParseSuggestionsBracketInString(t *testing.T) {
	raw := `[{"excerpt": "lists like [1, 2]", "critique": "expand [sic]"}]`

	got, err := ParseSuggestions("mock", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0].Excerpt != "lists like [1, 2]" {
		t.Errorf("bracket inside string mangled: %+v", got)
	}
}

func TestParseSuggestionsNoFallback(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no array", "I couldn't think of anything."},
		{"unterminated", `[{"excerpt": "a", "critique": "b"`},
		{"empty list", "[]"},
		{"missing field", `[{"excerpt": "a"}]`},
		{"wrong types", `[{"excerpt": 1, "critique": 2}]`},
		{"empty strings", `[{"excerpt": "", "critique": ""}]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSuggestions("mock", tc.raw)
			if !errors.Is(err, ErrUpstream) {
				t.Errorf("expected ErrUpstream, got %v", err)
			}
		})
	}
}

func TestUpstreamErrorWrapping(t *testing.T) {
	inner := errors.New("connection reset")
	err := Upstream("anthropic", inner)

	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Upstream error should match ErrUpstream")
	}
	if !errors.Is(err, inner) {
		t.Errorf("original error must remain unwrappable")
	}
	if err.Error() != "anthropic: upstream error: connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

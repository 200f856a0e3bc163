package asset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/redline/internal/rewrite"
	"github.com/dshills/redline/internal/rewrite/mock"
)

func TestBlock(t *testing.T) {
	if got := Block("assets/a.png", "a red fox"); got != "![a red fox](assets/a.png)" {
		t.Errorf("got %q", got)
	}
	if got := Block("assets/a.png", ""); got != "![generated image](assets/a.png)" {
		t.Errorf("empty alt: got %q", got)
	}
	if got := Block("assets/a.png", "two\nlines"); got != "![two lines](assets/a.png)" {
		t.Errorf("newline alt: got %q", got)
	}
}

func TestRecoverOffsetExact(t *testing.T) {
	doc := "intro text\nthe fox jumps\noutro"

	if got := RecoverOffset(doc, "the fox jumps"); got != 11 {
		t.Errorf("exact match at %d, want 11", got)
	}
}

func TestRecoverOffsetPrefix(t *testing.T) {
	doc := "intro text\nthe fox jumps over the fence\noutro"

	// The tail of the excerpt drifted; a long prefix still matches.
	if got := RecoverOffset(doc, "the fox jumps over the hedge"); got != 11 {
		t.Errorf("prefix match at %d, want 11", got)
	}
}

func TestRecoverOffsetFallback(t *testing.T) {
	doc := "completely unrelated text"

	if got := RecoverOffset(doc, "nothing like this appears"); got != len(doc) {
		t.Errorf("fallback at %d, want end of document %d", got, len(doc))
	}
	if got := RecoverOffset(doc, ""); got != len(doc) {
		t.Errorf("empty excerpt at %d, want end of document", got)
	}
	// Short excerpts never match on a sub-threshold prefix.
	if got := RecoverOffset(doc, "comzzz"); got != len(doc) {
		t.Errorf("short drifted excerpt at %d, want end of document", got)
	}
}

func TestPlace(t *testing.T) {
	gen := &mock.AssetGenerator{}
	store := &mock.AssetStore{}
	doc := "Hello world\nGoodbye"

	ins, err := Place(context.Background(), gen, store, doc, 6, "a globe")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if ins.Offset != 0 {
		t.Errorf("offset %d, want 0 (line anchored)", ins.Offset)
	}
	if !strings.HasPrefix(ins.NewText, "![a globe](assets/asset-1.png)\n\nHello world") {
		t.Errorf("unexpected text %q", ins.NewText)
	}
	if len(store.Saved) != 1 {
		t.Errorf("payload not persisted")
	}
}

func TestPlaceGeneratorFailure(t *testing.T) {
	gen := &mock.AssetGenerator{Err: rewrite.Upstream("mock", errors.New("quota"))}
	store := &mock.AssetStore{}

	_, err := Place(context.Background(), gen, store, "text", 0, "x")
	if !errors.Is(err, rewrite.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
	if len(store.Saved) != 0 {
		t.Errorf("nothing should be persisted on failure")
	}
}

// Package asset places generated image references into document text.
//
// The engine never touches image bytes: a generator produces the payload, a
// store persists it and returns a stable reference, and this package composes
// the markdown block and decides where it lands. Insertion is line-anchored
// so an image never splits a prose line, and offset recovery from an excerpt
// uses one deterministic strategy with a documented fallback.
package asset

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/redline/internal/rewrite"
	"github.com/dshills/redline/internal/text"
)

// minPrefixLen is the shortest excerpt prefix considered trustworthy when the
// full excerpt no longer appears in the document.
const minPrefixLen = 16

// Block composes the markdown image block for a stored reference.
func Block(ref, altText string) string {
	alt := strings.ReplaceAll(altText, "\n", " ")
	if alt == "" {
		alt = "generated image"
	}
	return fmt.Sprintf("![%s](%s)", alt, ref)
}

// RecoverOffset locates an insertion offset for an excerpt of document text.
//
// Strategy, in order: exact substring match; longest-prefix match, shrinking
// the excerpt from the right down to minPrefixLen bytes; otherwise the end of
// the document. The fallback means a fully drifted excerpt degrades to an
// appended image rather than a misplaced one.
func RecoverOffset(docText, excerpt string) int {
	if excerpt == "" {
		return len(docText)
	}

	if i := strings.Index(docText, excerpt); i >= 0 {
		return i
	}

	for end := len(excerpt) - 1; end >= minPrefixLen; end-- {
		if i := strings.Index(docText, excerpt[:end]); i >= 0 {
			return i
		}
	}
	return len(docText)
}

// Insertion is the result of placing an asset into document text.
type Insertion struct {
	// NewText is the document text with the block inserted.
	NewText string

	// Offset is where the block was placed after line anchoring.
	Offset int

	// Ref is the stored asset reference embedded in the block.
	Ref string
}

// Place generates an asset for the prompt, persists it, and inserts its
// reference block into docText at the line containing offset.
func Place(ctx context.Context, gen rewrite.AssetGenerator, store rewrite.AssetStore,
	docText string, offset int, prompt string) (Insertion, error) {

	before, after := text.ContextWindow(docText, offset, offset, 200)

	data, contentType, err := gen.GenerateAsset(ctx, rewrite.AssetPrompt{
		Prompt:  prompt,
		Context: before + after,
	})
	if err != nil {
		return Insertion{}, err
	}

	ref, err := store.Save(ctx, data, contentType)
	if err != nil {
		return Insertion{}, err
	}

	newText, placed := text.InsertBlock(docText, offset, Block(ref, prompt))
	return Insertion{NewText: newText, Offset: placed, Ref: ref}, nil
}

package rewrite

import (
	"context"
	"strings"
)

// Prompt carries one span-rewrite request to a provider.
type Prompt struct {
	// Selected is the exact text of the span being rewritten.
	Selected string

	// Instruction is the author's free-text critique of the span.
	Instruction string

	// ContextBefore and ContextAfter are bounded windows of surrounding
	// document text, already reflecting earlier replacements in the batch.
	ContextBefore string
	ContextAfter  string
}

// Render produces the system and user messages sent to a chat-style provider.
// All providers share this rendering so replacement quality differences come
// from the model, not the framing.
func (p Prompt) Render() (system, user string) {
	system = "You are revising one span of a longer document. " +
		"Rewrite only the span according to the instruction. " +
		"Return the replacement text and nothing else: no preamble, no quotes, no markdown fences. " +
		"The replacement must read naturally between the surrounding context."

	var b strings.Builder
	b.WriteString("Context before the span:\n")
	b.WriteString(p.ContextBefore)
	b.WriteString("\n\nSpan to rewrite:\n")
	b.WriteString(p.Selected)
	b.WriteString("\n\nContext after the span:\n")
	b.WriteString(p.ContextAfter)
	b.WriteString("\n\nInstruction:\n")
	b.WriteString(p.Instruction)
	return system, b.String()
}

// Stream is a pull-based sequence of replacement text fragments.
//
// Next returns the next fragment, or done=true after the final fragment has
// been returned. A non-nil error terminates the stream; no further fragments
// follow an error. Callers must Close the stream when abandoning it early so
// the provider can release the underlying connection.
type Stream interface {
	Next() (fragment string, done bool, err error)
	Close() error
}

// Rewriter streams replacement text for one span.
// Implementations must respect ctx cancellation mid-stream.
type Rewriter interface {
	Rewrite(ctx context.Context, p Prompt) (Stream, error)
}

// Suggester produces critique suggestions for a whole document.
// The response must be a structured list; see ParseSuggestions.
type Suggester interface {
	Suggest(ctx context.Context, documentText string) ([]Suggestion, error)
}

// AssetPrompt carries one image-generation request.
type AssetPrompt struct {
	// Prompt describes the image to generate.
	Prompt string

	// Context is nearby document text the image should fit.
	Context string
}

// AssetGenerator produces one binary image payload for a prompt.
type AssetGenerator interface {
	GenerateAsset(ctx context.Context, p AssetPrompt) (data []byte, contentType string, err error)
}

// AssetStore persists an image payload and returns a stable reference.
// The engine only ever embeds the returned reference string.
type AssetStore interface {
	Save(ctx context.Context, data []byte, contentType string) (ref string, err error)
}

// Collect drains a stream and returns the concatenated replacement text.
// Used by suggestion passes and tests; batch reconciliation consumes
// fragments one at a time instead.
func Collect(s Stream) (string, error) {
	defer s.Close()

	var b strings.Builder
	for {
		frag, done, err := s.Next()
		if err != nil {
			return "", err
		}
		if done {
			return b.String(), nil
		}
		b.WriteString(frag)
	}
}

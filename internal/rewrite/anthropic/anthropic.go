// Package anthropic adapts the Anthropic Messages API as a streaming rewrite
// collaborator.
package anthropic

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/dshills/redline/internal/rewrite"
)

const providerName = "anthropic"

// Options configures the client.
type Options struct {
	// APIKeyEnv names the environment variable holding the key.
	// Defaults to ANTHROPIC_API_KEY.
	APIKeyEnv string

	// Model defaults to claude-sonnet-4-20250514.
	Model string

	// MaxTokens bounds each replacement. Defaults to 2048.
	MaxTokens int64
}

func (o *Options) defaults() {
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if o.Model == "" {
		o.Model = "claude-sonnet-4-20250514"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2048
	}
}

// Client is a rewrite.Rewriter backed by the Anthropic Messages API.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates a client from options, reading the API key from the environment.
func New(opts Options) (*Client, error) {
	opts.defaults()

	key := os.Getenv(opts.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("anthropic: missing api key in %s", opts.APIKeyEnv)
	}

	return &Client{
		api:       anthropic.NewClient(option.WithAPIKey(key)),
		model:     anthropic.Model(opts.Model),
		maxTokens: opts.MaxTokens,
	}, nil
}

// Rewrite streams replacement text for the prompt's span.
func (c *Client) Rewrite(ctx context.Context, p rewrite.Prompt) (rewrite.Stream, error) {
	system, user := p.Render()

	sse := c.api.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	return &stream{sse: sse}, nil
}

// Suggest runs a non-streaming suggestion pass over the document.
func (c *Client) Suggest(ctx context.Context, documentText string) ([]rewrite.Suggestion, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: suggestionSystem},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(documentText)),
		},
	})
	if err != nil {
		return nil, rewrite.Upstream(providerName, err)
	}

	var raw string
	for _, block := range msg.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}
	return rewrite.ParseSuggestions(providerName, raw)
}

const suggestionSystem = "You are reviewing a long-form document. " +
	"Identify spans that would benefit from revision. " +
	"Respond with only a JSON array of objects, each with string fields " +
	"\"excerpt\" (verbatim text from the document) and \"critique\" " +
	"(a concrete rewriting instruction)."

// stream adapts the SDK's SSE event stream to rewrite.Stream, surfacing only
// text deltas.
type stream struct {
	sse *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *stream) Next() (string, bool, error) {
	for s.sse.Next() {
		event := s.sse.Current()
		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				return delta.Text, false, nil
			}
		}
	}
	if err := s.sse.Err(); err != nil {
		return "", false, rewrite.Upstream(providerName, err)
	}
	return "", true, nil
}

func (s *stream) Close() error {
	return s.sse.Close()
}

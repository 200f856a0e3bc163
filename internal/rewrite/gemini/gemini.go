// Package gemini adapts the Google Gemini API as a streaming rewrite
// collaborator.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dshills/redline/internal/rewrite"
)

const providerName = "gemini"

// Options configures the client.
type Options struct {
	// APIKeyEnv names the environment variable holding the key.
	// Defaults to GEMINI_API_KEY.
	APIKeyEnv string

	// Model defaults to gemini-1.5-flash.
	Model string
}

func (o *Options) defaults() {
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "GEMINI_API_KEY"
	}
	if o.Model == "" {
		o.Model = "gemini-1.5-flash"
	}
}

// Client is a rewrite.Rewriter backed by the Gemini API.
type Client struct {
	api   *genai.Client
	model string
}

// New creates a client from options, reading the API key from the environment.
// The caller owns the client's lifetime and should Close it when done.
func New(ctx context.Context, opts Options) (*Client, error) {
	opts.defaults()

	key := os.Getenv(opts.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("gemini: missing api key in %s", opts.APIKeyEnv)
	}

	api, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, rewrite.Upstream(providerName, err)
	}
	return &Client{api: api, model: opts.Model}, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.api.Close()
}

// Rewrite streams replacement text for the prompt's span.
func (c *Client) Rewrite(ctx context.Context, p rewrite.Prompt) (rewrite.Stream, error) {
	system, user := p.Render()

	model := c.api.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	iter := model.GenerateContentStream(ctx, genai.Text(user))
	return &stream{iter: iter}, nil
}

// stream adapts the SDK's response iterator to rewrite.Stream. Each response
// may carry several text parts; they are buffered and drained in order.
type stream struct {
	iter    *genai.GenerateContentResponseIterator
	pending []string
}

func (s *stream) Next() (string, bool, error) {
	for len(s.pending) == 0 {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", true, nil
		}
		if err != nil {
			return "", false, rewrite.Upstream(providerName, err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok && t != "" {
					s.pending = append(s.pending, string(t))
				}
			}
		}
	}

	frag := s.pending[0]
	s.pending = s.pending[1:]
	return frag, false, nil
}

// Close is a no-op; the iterator stops when its context is cancelled.
func (s *stream) Close() error { return nil }

// Package openai adapts the OpenAI API as a streaming rewrite collaborator
// and an image-asset generator.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/dshills/redline/internal/rewrite"
)

const providerName = "openai"

// Options configures the client.
type Options struct {
	// APIKeyEnv names the environment variable holding the key.
	// Defaults to OPENAI_API_KEY.
	APIKeyEnv string

	// Model defaults to gpt-4.1-mini.
	Model string

	// ImageModel defaults to dall-e-3.
	ImageModel string
}

func (o *Options) defaults() {
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "OPENAI_API_KEY"
	}
	if o.Model == "" {
		o.Model = "gpt-4.1-mini"
	}
	if o.ImageModel == "" {
		o.ImageModel = "dall-e-3"
	}
}

// Client is a rewrite.Rewriter and rewrite.AssetGenerator backed by OpenAI.
type Client struct {
	api        openai.Client
	model      openai.ChatModel
	imageModel openai.ImageModel
}

// New creates a client from options, reading the API key from the environment.
func New(opts Options) (*Client, error) {
	opts.defaults()

	key := os.Getenv(opts.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("openai: missing api key in %s", opts.APIKeyEnv)
	}

	return &Client{
		api:        openai.NewClient(option.WithAPIKey(key)),
		model:      openai.ChatModel(opts.Model),
		imageModel: openai.ImageModel(opts.ImageModel),
	}, nil
}

// Rewrite streams replacement text for the prompt's span.
func (c *Client) Rewrite(ctx context.Context, p rewrite.Prompt) (rewrite.Stream, error) {
	system, user := p.Render()

	sse := c.api.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	return &stream{sse: sse}, nil
}

// GenerateAsset produces one image for the prompt via the Images API.
func (c *Client) GenerateAsset(ctx context.Context, p rewrite.AssetPrompt) ([]byte, string, error) {
	prompt := p.Prompt
	if p.Context != "" {
		prompt += "\n\nThe image illustrates this passage:\n" + p.Context
	}

	resp, err := c.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              openai.Int(1),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, "", rewrite.Upstream(providerName, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, "", &rewrite.UpstreamError{
			Provider: providerName,
			Message:  "image response carries no payload",
		}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, "", rewrite.Upstream(providerName, err)
	}
	return data, "image/png", nil
}

// stream adapts the SDK's chunk stream to rewrite.Stream.
type stream struct {
	sse *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *stream) Next() (string, bool, error) {
	for s.sse.Next() {
		chunk := s.sse.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, false, nil
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

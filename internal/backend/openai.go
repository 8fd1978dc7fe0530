package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
)

// DefaultOpenAIModel is the hosted model used unless overridden.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI streams generations from the hosted OpenAI chat completions
// API.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates the hosted backend. The API key comes from the
// OPENAI_API_KEY environment variable.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	// openai-go reads OPENAI_API_KEY from the environment.
	client := openai.NewClient()

	return &OpenAI{
		client:  &client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Generate starts a streaming chat completion.
func (b *OpenAI) Generate(ctx context.Context, prompt string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)

	sse := b.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(b.model),
	})

	stream := newStream()
	go func() {
		defer cancel()
		defer sse.Close()

		for sse.Next() {
			chunk := sse.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta != "" && !stream.emit(ctx, delta) {
				stream.finish(mapTransportError(ctx.Err()))
				return
			}
		}
		stream.finish(mapOpenAIError(sse.Err()))
	}()

	return stream, nil
}

// Name returns the provider/model identifier.
func (b *OpenAI) Name() string { return "openai/" + b.model }

// Close releases resources.
func (b *OpenAI) Close() error { return nil }

// mapOpenAIError classifies API errors from the SDK.
func mapOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return mapStatusError(apiErr.StatusCode, []byte(apiErr.Message))
	}
	return mapTransportError(err)
}

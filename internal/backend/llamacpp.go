package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// llama.cpp server defaults. The server speaks SSE on /completion.
const (
	DefaultLlamaCppBaseURL = "http://localhost:8081"
)

// LlamaCpp streams generations from a llama.cpp server, the local
// inference engine option.
type LlamaCpp struct {
	client  *http.Client
	baseURL string
	model   string
	timeout time.Duration
}

// llamaCppRequest is the /completion request format.
type llamaCppRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// llamaCppChunk is one SSE data payload of a streaming response.
type llamaCppChunk struct {
	Content string `json:"content"`
	Stop    bool   `json:"stop"`
}

// NewLlamaCpp creates a llama.cpp backend from the shared config. The
// model is whatever the server was launched with; cfg.Model is kept
// only for display.
func NewLlamaCpp(cfg Config) *LlamaCpp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultLlamaCppBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "local"
	}
	return &LlamaCpp{
		client:  &http.Client{},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Generate starts a streaming completion call.
func (b *LlamaCpp) Generate(ctx context.Context, prompt string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)

	jsonBody, err := json.Marshal(llamaCppRequest{Prompt: prompt, Stream: true})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/completion", bytes.NewReader(jsonBody))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := b.client.Do(req)
	if err != nil {
		cancel()
		return nil, mapTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, mapStatusError(resp.StatusCode, body)
	}

	stream := newStream()
	go func() {
		defer cancel()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			payload, ok := bytes.CutPrefix(line, []byte("data: "))
			if !ok {
				continue
			}
			var chunk llamaCppChunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				stream.finish(fmt.Errorf("decode stream: %w", err))
				return
			}
			if chunk.Content != "" && !stream.emit(ctx, chunk.Content) {
				stream.finish(mapTransportError(ctx.Err()))
				return
			}
			if chunk.Stop {
				stream.finish(nil)
				return
			}
		}
		if err := scanner.Err(); err != nil {
			stream.finish(mapTransportError(err))
			return
		}
		stream.finish(nil)
	}()

	return stream, nil
}

// Name returns the provider/model identifier.
func (b *LlamaCpp) Name() string { return "llamacpp/" + b.model }

// Close releases resources.
func (b *LlamaCpp) Close() error { return nil }

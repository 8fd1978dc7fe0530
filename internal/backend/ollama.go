package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama defaults.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "gemma3"
)

// Ollama streams generations from a local Ollama server via the
// /api/generate NDJSON protocol.
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
	timeout time.Duration
}

// ollamaGenerateRequest is the /api/generate request format.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateChunk is one NDJSON line of a streaming response.
type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllama creates an Ollama backend from the shared config.
func NewOllama(cfg Config) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	return &Ollama{
		// No client-level timeout: it would cut off long streams. The
		// per-call context deadline bounds the whole call instead.
		client:  &http.Client{},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Generate starts a streaming generation call.
func (b *Ollama) Generate(ctx context.Context, prompt string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)

	jsonBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  b.model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
			if len(line) == 0 {
				continue
			}
			var chunk ollamaGenerateChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				stream.finish(fmt.Errorf("decode stream: %w", err))
				return
			}
			if chunk.Response != "" && !stream.emit(ctx, chunk.Response) {
				stream.finish(mapTransportError(ctx.Err()))
				return
			}
			if chunk.Done {
				stream.finish(nil)
				return
			}
		}
		if err := scanner.Err(); err != nil {
			stream.finish(mapTransportError(err))
			return
		}
		// Server closed the stream without a done marker.
		stream.finish(nil)
	}()

	return stream, nil
}

// Name returns the provider/model identifier.
func (b *Ollama) Name() string { return "ollama/" + b.model }

// Close releases resources. The HTTP client needs no explicit cleanup.
func (b *Ollama) Close() error { return nil }

// mapTransportError classifies connection-level failures.
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// mapStatusError classifies HTTP error statuses. 429 and 503 count as
// overload and are retryable; everything else is surfaced as
// unavailable.
func mapStatusError(code int, body []byte) error {
	switch code {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d: %s", ErrOverloaded, code, bytes.TrimSpace(body))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, bytes.TrimSpace(body))
	}
}

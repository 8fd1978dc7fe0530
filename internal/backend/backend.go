// Package backend abstracts the pluggable text-generation providers and
// their streaming output.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable means the provider could not be reached or refused
	// the call (connection or auth failure). Not retried automatically.
	ErrUnavailable = errors.New("generation backend unavailable")

	// ErrTimeout means the call exceeded the configured timeout.
	ErrTimeout = errors.New("generation timed out")

	// ErrOverloaded means the provider rate-limited the call. Eligible
	// for bounded automatic retry before being surfaced.
	ErrOverloaded = errors.New("generation backend overloaded")
)

// Config selects and parameterizes a provider. It is supplied by the
// caller (CLI, env, config file) and treated as opaque beyond these
// fields.
type Config struct {
	// Provider picks the implementation: "ollama", "openai",
	// "llamacpp" or "stub".
	Provider string

	// Model is the provider-specific model identifier.
	Model string

	// BaseURL overrides the provider endpoint (local providers).
	BaseURL string

	// Timeout bounds one whole generation call. A zero timeout fails
	// the call immediately.
	Timeout time.Duration

	// MaxContextTokens is the prompt budget handed to the assembler.
	MaxContextTokens int
}

// Backend is one generation provider. Generate starts a call and
// returns a stream of text increments; cancelling the context stops the
// stream and releases the underlying call promptly.
type Backend interface {
	Generate(ctx context.Context, prompt string) (*Stream, error)
	Name() string
	Close() error
}

// New creates the backend selected by cfg.Provider. The provider set is
// closed; unknown names fail.
func New(cfg Config) (Backend, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "openai":
		return NewOpenAI(cfg)
	case "llamacpp":
		return NewLlamaCpp(cfg), nil
	case "stub":
		return NewStub(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}
}

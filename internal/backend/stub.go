package backend

import (
	"context"
	"time"
)

// Stub is a scripted backend that streams canned increments. It backs
// tests and offline demos where no model is available.
type Stub struct {
	// Increments are streamed in order when Script is nil.
	Increments []string

	// Script derives increments from the prompt, for stubs that need
	// to echo context.
	Script func(prompt string) []string

	// Delay between increments, imitating token pacing.
	Delay time.Duration

	timeout time.Duration
}

// NewStub creates a stub from the shared config with a default greeting.
func NewStub(cfg Config) *Stub {
	return &Stub{
		Increments: []string{"Hello", ",", " world", "!"},
		Delay:      2 * time.Millisecond,
		timeout:    cfg.Timeout,
	}
}

// WithTimeout sets the per-call timeout, mirroring Config.Timeout.
func (b *Stub) WithTimeout(d time.Duration) *Stub {
	b.timeout = d
	return b
}

// Generate streams the scripted increments.
func (b *Stub) Generate(ctx context.Context, prompt string) (*Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)

	if err := ctx.Err(); err != nil {
		cancel()
		return nil, mapTransportError(err)
	}

	increments := b.Increments
	if b.Script != nil {
		increments = b.Script(prompt)
	}

	stream := newStream()
	go func() {
		defer cancel()
		for _, inc := range increments {
			if b.Delay > 0 {
				select {
				case <-time.After(b.Delay):
				case <-ctx.Done():
					stream.finish(mapTransportError(ctx.Err()))
					return
				}
			}
			if !stream.emit(ctx, inc) {
				stream.finish(mapTransportError(ctx.Err()))
				return
			}
		}
		stream.finish(nil)
	}()

	return stream, nil
}

// Name returns the provider identifier.
func (b *Stub) Name() string { return "stub" }

// Close releases resources.
func (b *Stub) Close() error { return nil }

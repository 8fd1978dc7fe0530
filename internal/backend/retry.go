package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxOverloadRetries bounds automatic retries of rate-limited calls.
const maxOverloadRetries = 3

// WithRetry wraps a backend so that calls failing with ErrOverloaded
// are restarted with exponential backoff a bounded number of times.
// Once the retries are exhausted the overload is surfaced as an
// unavailable backend. All other errors pass through immediately, and
// errors after the stream has started are never retried.
func WithRetry(b Backend) Backend {
	return &retryBackend{inner: b}
}

type retryBackend struct {
	inner Backend
}

func (r *retryBackend) Generate(ctx context.Context, prompt string) (*Stream, error) {
	var stream *Stream

	operation := func() error {
		s, err := r.inner.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, ErrOverloaded) {
				return err
			}
			return backoff.Permanent(err)
		}
		stream = s
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(b, maxOverloadRetries), ctx))
	if err != nil {
		if errors.Is(err, ErrOverloaded) {
			return nil, fmt.Errorf("%w: still overloaded after %d retries: %v",
				ErrUnavailable, maxOverloadRetries, err)
		}
		return nil, err
	}
	return stream, nil
}

func (r *retryBackend) Name() string { return r.inner.Name() }

func (r *retryBackend) Close() error { return r.inner.Close() }

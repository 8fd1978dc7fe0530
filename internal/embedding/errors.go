package embedding

import "errors"

var (
	// ErrUnavailable means the embedding model or service could not be
	// reached.
	ErrUnavailable = errors.New("embedding service unavailable")
)

package index

import "errors"

var (
	// ErrDuplicateChunk means a chunk ID was inserted twice during a build.
	ErrDuplicateChunk = errors.New("duplicate chunk id")

	// ErrDimensionMismatch means a vector's width does not match the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProviderMismatch means a persisted index was produced by a
	// different embedding provider than the one configured.
	ErrProviderMismatch = errors.New("embedding provider mismatch")

	// ErrChunkNotFound means no record exists for the requested chunk ID.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrQdrantUnreachable means the Qdrant server did not answer health
	// checks.
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
)

package index

import (
	"context"
	"sync/atomic"
)

// Store is the read side of a vector index. The in-memory Handle and
// the remote Qdrant store both implement it.
type Store interface {
	// Search returns up to limit hits ordered by descending similarity.
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	// Get resolves a chunk ID to its full record. Returns
	// ErrChunkNotFound for unknown IDs.
	Get(ctx context.Context, chunkID string) (Record, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)
}

// Handle is an atomically swappable reference to an Index. Rebuilds
// publish a fully built index with Swap; concurrent readers never see a
// partially built one. A Handle with no index behaves as empty.
type Handle struct {
	ptr atomic.Pointer[Index]
}

// NewHandle creates a handle, optionally seeded with an index.
func NewHandle(ix *Index) *Handle {
	h := &Handle{}
	if ix != nil {
		h.ptr.Store(ix)
	}
	return h
}

// Current returns the live index, or nil if none has been published.
func (h *Handle) Current() *Index { return h.ptr.Load() }

// Swap publishes a new index. In-flight searches finish against the
// index they started with.
func (h *Handle) Swap(ix *Index) { h.ptr.Store(ix) }

// Search queries the live index. With no index published it returns an
// empty result, mirroring an empty index.
func (h *Handle) Search(_ context.Context, vector []float32, limit int) ([]Hit, error) {
	ix := h.ptr.Load()
	if ix == nil {
		return []Hit{}, nil
	}
	return ix.Search(vector, limit)
}

// Get resolves a chunk ID against the live index.
func (h *Handle) Get(_ context.Context, chunkID string) (Record, error) {
	ix := h.ptr.Load()
	if ix == nil {
		return Record{}, ErrChunkNotFound
	}
	rec, ok := ix.Get(chunkID)
	if !ok {
		return Record{}, ErrChunkNotFound
	}
	return rec, nil
}

// Count returns the number of chunks in the live index.
func (h *Handle) Count(_ context.Context) (int, error) {
	ix := h.ptr.Load()
	if ix == nil {
		return 0, nil
	}
	return ix.Len(), nil
}

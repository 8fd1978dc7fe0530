//go:build integration
// +build integration

package index

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestQdrant connects to a local Qdrant and rebuilds the chunk
// collection so every test starts empty. Skips if Qdrant is not running.
func setupTestQdrant(t *testing.T, provider string, dimension int) *Qdrant {
	t.Helper()

	q, err := NewQdrant("localhost", 6334, provider, dimension)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, q.EnsureCollection(ctx), "Failed to ensure collection")
	require.NoError(t, q.Rebuild(ctx), "Failed to rebuild collection")

	return q
}

func TestQdrantRoundTrip(t *testing.T) {
	q := setupTestQdrant(t, "fake", 4)
	defer q.Close()

	ctx := context.Background()

	records := []Record{
		{
			ChunkID: "cat#0", DocID: "cat", DocTitle: "Cat", Section: "Cat > Speed",
			Text:   "The domestic cat can sprint at about 48 km/h.",
			Vector: []float32{1, 0, 0, 0},
		},
		{
			ChunkID: "dog#0", DocID: "dog", DocTitle: "Dog",
			Text:   "Dogs are descended from wolves.",
			Vector: []float32{0, 1, 0, 0},
		},
	}
	require.NoError(t, q.AddBatch(ctx, records), "Failed to upsert records")

	// Wait for Qdrant to index points (eventual consistency).
	time.Sleep(100 * time.Millisecond)

	// The metadata point is never counted or searched.
	count, err := q.Count(ctx)
	require.NoError(t, err, "Failed to count chunks")
	assert.Equal(t, 2, count)

	hits, err := q.Search(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err, "Failed to search chunks")
	require.Len(t, hits, 2)
	assert.Equal(t, "cat#0", hits[0].ChunkID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	got, err := q.Get(ctx, "cat#0")
	require.NoError(t, err, "Failed to get chunk")
	assert.Equal(t, "cat#0", got.ChunkID)
	assert.Equal(t, "cat", got.DocID)
	assert.Equal(t, "Cat", got.DocTitle)
	assert.Equal(t, "Cat > Speed", got.Section)
	assert.Equal(t, records[0].Text, got.Text)
}

func TestQdrantMetaVerification(t *testing.T) {
	q := setupTestQdrant(t, "fake", 4)
	defer q.Close()

	// A second client with a different provider must be rejected before
	// it can mix vectors into the collection.
	other, err := NewQdrant("localhost", 6334, "other", 4)
	require.NoError(t, err)
	defer other.Close()
	assert.ErrorIs(t, other.EnsureCollection(context.Background()), ErrProviderMismatch)

	narrow, err := NewQdrant("localhost", 6334, "fake", 8)
	require.NoError(t, err)
	defer narrow.Close()
	assert.ErrorIs(t, narrow.EnsureCollection(context.Background()), ErrDimensionMismatch)
}

func TestQdrantDimensionValidation(t *testing.T) {
	q := setupTestQdrant(t, "fake", 4)
	defer q.Close()

	ctx := context.Background()

	err := q.AddBatch(ctx, []Record{{ChunkID: "bad#0", Vector: []float32{1, 0}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong record dimension")

	_, err = q.Search(ctx, []float32{1, 0}, 10)
	assert.ErrorIs(t, err, ErrDimensionMismatch, "Should reject wrong query dimension")
}

func TestQdrantGetMissingChunk(t *testing.T) {
	q := setupTestQdrant(t, "fake", 4)
	defer q.Close()

	_, err := q.Get(context.Background(), "nonexistent#0")
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestQdrantBatchUpsert(t *testing.T) {
	q := setupTestQdrant(t, "fake", 4)
	defer q.Close()

	ctx := context.Background()

	// More than two upsert batches of 100.
	records := make([]Record, 250)
	for i := range records {
		records[i] = Record{
			ChunkID: fmt.Sprintf("doc#%d", i),
			DocID:   "doc",
			Text:    "Chunk content",
			Vector:  []float32{0.5, 0.5, 0, 0},
		}
	}
	require.NoError(t, q.AddBatch(ctx, records), "Failed to upsert batch of records")

	time.Sleep(100 * time.Millisecond)

	count, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, count)
}

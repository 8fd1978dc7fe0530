package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/wiki-rag/internal/index"
)

// fakeProvider embeds every text to a fixed vector.
type fakeProvider struct {
	vector []float32
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeProvider) Dimension() int { return len(f.vector) }
func (f *fakeProvider) Name() string   { return "fake" }

func buildIndex(t *testing.T, recs ...index.Record) *index.Handle {
	t.Helper()
	ix := index.New("fake", 2)
	for _, rec := range recs {
		require.NoError(t, ix.Add(rec))
	}
	return index.NewHandle(ix)
}

func TestRetrieveRanked(t *testing.T) {
	h := buildIndex(t,
		index.Record{ChunkID: "cat#0", DocID: "cat", Text: "cats", Vector: []float32{1, 0}},
		index.Record{ChunkID: "dog#0", DocID: "dog", Text: "dogs", Vector: []float32{0.9, 0.1}},
		index.Record{ChunkID: "go#0", DocID: "go", Text: "golang", Vector: []float32{0, 1}},
	)

	r := New(&fakeProvider{vector: []float32{1, 0}}, h, Config{TopK: 2, MinScore: 0.1})
	results, err := r.Retrieve(context.Background(), "about cats")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "cat#0", results[0].Record.ChunkID)
	assert.Equal(t, "dog#0", results[1].Record.ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRetrieveMinScoreFilter(t *testing.T) {
	h := buildIndex(t,
		index.Record{ChunkID: "a#0", DocID: "a", Vector: []float32{1, 0}},
		index.Record{ChunkID: "b#0", DocID: "b", Vector: []float32{0, 1}},
	)

	r := New(&fakeProvider{vector: []float32{1, 0}}, h, Config{TopK: 5, MinScore: 0.5})
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a#0", results[0].Record.ChunkID)
}

func TestRetrieveEmptyResult(t *testing.T) {
	h := buildIndex(t,
		index.Record{ChunkID: "a#0", DocID: "a", Vector: []float32{0, 1}},
	)

	// Nothing clears the threshold: empty result, not an error.
	r := New(&fakeProvider{vector: []float32{1, 0}}, h, Config{TopK: 5, MinScore: 0.5})
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrievePerDocCap(t *testing.T) {
	h := buildIndex(t,
		index.Record{ChunkID: "long#0", DocID: "long", Vector: []float32{1, 0}},
		index.Record{ChunkID: "long#1", DocID: "long", Vector: []float32{0.99, 0.01}},
		index.Record{ChunkID: "long#2", DocID: "long", Vector: []float32{0.98, 0.02}},
		index.Record{ChunkID: "other#0", DocID: "other", Vector: []float32{0.9, 0.1}},
	)

	r := New(&fakeProvider{vector: []float32{1, 0}}, h, Config{TopK: 3, MinScore: 0.1, PerDocCap: 2})
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	require.Len(t, results, 3)
	perDoc := map[string]int{}
	for _, res := range results {
		perDoc[res.Record.DocID]++
	}
	assert.Equal(t, 2, perDoc["long"])
	assert.Equal(t, 1, perDoc["other"])
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := New(&fakeProvider{vector: []float32{1, 0}}, index.NewHandle(nil), Config{})
	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestConfigDefaults(t *testing.T) {
	r := New(&fakeProvider{vector: []float32{1, 0}}, index.NewHandle(nil), Config{})
	assert.Equal(t, DefaultTopK, r.cfg.TopK)
	assert.Equal(t, float32(DefaultMinScore), r.cfg.MinScore)
	assert.Equal(t, DefaultPerDocCap, r.cfg.PerDocCap)
}

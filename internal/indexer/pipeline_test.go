package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/wiki-rag/internal/chunker"
	"github.com/bull/wiki-rag/internal/corpus"
	"github.com/bull/wiki-rag/internal/index"
)

// countingProvider embeds texts to distinct vectors and records how
// many texts it saw.
type countingProvider struct {
	embedded int
	fail     bool
}

func (p *countingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if p.fail {
		return nil, errors.New("provider down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(p.embedded + i)}
		p.embedded++
	}
	return out, nil
}

func (p *countingProvider) Dimension() int { return 2 }
func (p *countingProvider) Name() string   { return "counting" }

func testDocs() []corpus.Document {
	return []corpus.Document{
		{ID: "cat", Title: "Cat", Text: "The cat is a small domesticated carnivore."},
		{ID: "dog", Title: "Dog", Text: "The dog descended from an ancient wolf population."},
	}
}

func TestBuild(t *testing.T) {
	provider := &countingProvider{}
	p := NewPipeline(chunker.New(0, 0), provider, nil)

	ix, result, err := p.Build(context.Background(), testDocs())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalDocs)
	assert.Equal(t, 2, result.TotalChunks)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, "counting", ix.Provider())
	assert.Equal(t, 2, provider.embedded)

	rec, ok := ix.Get("cat#0")
	require.True(t, ok)
	assert.Equal(t, "Cat", rec.DocTitle)
	assert.Contains(t, rec.Text, "domesticated carnivore")
}

func TestBuildAbortsOnInvalidDocument(t *testing.T) {
	docs := append(testDocs(), corpus.Document{ID: "bad", Text: "   "})
	p := NewPipeline(chunker.New(0, 0), &countingProvider{}, nil)

	_, _, err := p.Build(context.Background(), docs)
	require.Error(t, err)
	assert.ErrorIs(t, err, corpus.ErrInvalidDocument)
}

func TestBuildAbortsOnProviderError(t *testing.T) {
	p := NewPipeline(chunker.New(0, 0), &countingProvider{fail: true}, nil)

	_, _, err := p.Build(context.Background(), testDocs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed cat")
}

func TestBuildAndSwap(t *testing.T) {
	h := index.NewHandle(nil)
	p := NewPipeline(chunker.New(0, 0), &countingProvider{}, nil)

	result, err := p.BuildAndSwap(context.Background(), testDocs(), h)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalChunks)
	require.NotNil(t, h.Current())
	assert.Equal(t, 2, h.Current().Len())
}

func TestBuildAndSwapKeepsOldIndexOnFailure(t *testing.T) {
	old := index.New("counting", 2)
	require.NoError(t, old.Add(index.Record{ChunkID: "keep#0", Vector: []float32{1, 0}}))
	h := index.NewHandle(old)

	p := NewPipeline(chunker.New(0, 0), &countingProvider{fail: true}, nil)
	_, err := p.BuildAndSwap(context.Background(), testDocs(), h)
	require.Error(t, err)

	// The failed rebuild never reaches the handle.
	assert.Same(t, old, h.Current())
}

func TestEmbedTextCarriesProvenance(t *testing.T) {
	c := chunker.Chunk{DocTitle: "Go", Section: "History", Text: "Designed in 2007."}
	assert.Equal(t, "Go / History\n\nDesigned in 2007.", embedText(c))

	plain := chunker.Chunk{Text: "No provenance."}
	assert.Equal(t, "No provenance.", embedText(plain))
}

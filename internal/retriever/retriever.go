// Package retriever finds the corpus chunks most relevant to a query.
package retriever

import (
	"context"
	"fmt"

	"github.com/bull/wiki-rag/internal/embedding"
	"github.com/bull/wiki-rag/internal/index"
)

// Defaults chosen for a small encyclopedic corpus. All three are
// tunable; none is load-bearing.
const (
	DefaultTopK      = 5
	DefaultMinScore  = 0.35
	DefaultPerDocCap = 2
)

// Config holds retrieval tuning knobs.
type Config struct {
	// TopK is the maximum number of chunks returned.
	TopK int

	// MinScore drops candidates below this similarity. Retrieval that
	// clears nothing returns an empty result, not an error.
	MinScore float32

	// PerDocCap limits chunks from one source document, so a single
	// long article cannot crowd out the rest of the corpus.
	PerDocCap int
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Record index.Record
	Score  float32
}

// Retriever embeds queries and ranks index hits into usable context.
type Retriever struct {
	provider embedding.Provider
	store    index.Store
	cfg      Config
}

// New creates a retriever over the given provider and store.
// Zero-valued config fields fall back to the defaults.
func New(provider embedding.Provider, store index.Store, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.PerDocCap <= 0 {
		cfg.PerDocCap = DefaultPerDocCap
	}
	return &Retriever{provider: provider, store: store, cfg: cfg}
}

// Retrieve returns up to TopK chunks relevant to the query, best first.
// Candidates are over-fetched threefold so the per-document cap still
// leaves enough diversity, then filtered by MinScore and resolved to
// full records. An empty result means no chunk cleared the threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	vectors, err := r.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.store.Search(ctx, vectors[0], r.cfg.TopK*3)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	perDoc := make(map[string]int)
	results := make([]Result, 0, r.cfg.TopK)
	for _, hit := range hits {
		if hit.Score < r.cfg.MinScore {
			// Hits are ordered by score, nothing later can clear it.
			break
		}

		rec, err := r.store.Get(ctx, hit.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("resolve chunk %s: %w", hit.ChunkID, err)
		}
		if perDoc[rec.DocID] >= r.cfg.PerDocCap {
			continue
		}
		perDoc[rec.DocID]++

		results = append(results, Result{Record: rec, Score: hit.Score})
		if len(results) == r.cfg.TopK {
			break
		}
	}

	return results, nil
}

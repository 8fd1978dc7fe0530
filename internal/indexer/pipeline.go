// Package indexer builds a vector index out of a corpus.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/wiki-rag/internal/chunker"
	"github.com/bull/wiki-rag/internal/corpus"
	"github.com/bull/wiki-rag/internal/embedding"
	"github.com/bull/wiki-rag/internal/index"
)

// Splitter is the chunking strategy. Both the window chunker and the
// markdown chunker satisfy it.
type Splitter interface {
	Split(doc corpus.Document) ([]chunker.Chunk, error)
}

// Result contains statistics about one index build.
type Result struct {
	TotalDocs   int
	TotalChunks int
	Duration    time.Duration
}

// Pipeline chunks and embeds documents into a fresh index. Any error
// aborts the whole build, so a partially built index is never returned
// and callers only ever publish complete ones.
type Pipeline struct {
	splitter Splitter
	provider embedding.Provider
	logger   *slog.Logger
}

// NewPipeline creates an index build pipeline.
func NewPipeline(splitter Splitter, provider embedding.Provider, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		splitter: splitter,
		provider: provider,
		logger:   logger,
	}
}

// Build chunks and embeds every document into a new index.
func (p *Pipeline) Build(ctx context.Context, docs []corpus.Document) (*index.Index, *Result, error) {
	start := time.Now()
	ix := index.New(p.provider.Name(), p.provider.Dimension())

	p.logger.Info("Building index",
		"documents", len(docs),
		"provider", p.provider.Name(),
	)

	for _, doc := range docs {
		chunks, err := p.splitter.Split(doc)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = embedText(c)
		}

		vectors, err := p.provider.Embed(ctx, texts)
		if err != nil {
			return nil, nil, fmt.Errorf("embed %s: %w", doc.ID, err)
		}
		if len(vectors) != len(chunks) {
			return nil, nil, fmt.Errorf("embed %s: got %d vectors for %d chunks",
				doc.ID, len(vectors), len(chunks))
		}

		for i, c := range chunks {
			rec := index.Record{
				ChunkID:  c.ID,
				DocID:    c.DocID,
				DocTitle: c.DocTitle,
				Section:  c.Section,
				Text:     c.Text,
				Vector:   vectors[i],
			}
			if err := ix.Add(rec); err != nil {
				return nil, nil, fmt.Errorf("index %s: %w", c.ID, err)
			}
		}

		p.logger.Debug("Indexed document", "doc", doc.ID, "chunks", len(chunks))
	}

	result := &Result{
		TotalDocs:   len(docs),
		TotalChunks: ix.Len(),
		Duration:    time.Since(start),
	}
	p.logger.Info("Index built",
		"documents", result.TotalDocs,
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return ix, result, nil
}

// BuildAndSwap builds a new index and publishes it through the handle
// only on success. Concurrent readers keep the old index until the new
// one is complete.
func (p *Pipeline) BuildAndSwap(ctx context.Context, docs []corpus.Document, h *index.Handle) (*Result, error) {
	ix, result, err := p.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	h.Swap(ix)
	return result, nil
}

// Mirror copies a built index into a Qdrant collection.
func Mirror(ctx context.Context, q *index.Qdrant, ix *index.Index) error {
	return q.AddBatch(ctx, ix.Records())
}

// embedText prepends a chunk's provenance to its body for embedding,
// so the title and section contribute to similarity.
func embedText(c chunker.Chunk) string {
	header := c.DocTitle
	if c.Section != "" {
		header += " / " + c.Section
	}
	if header == "" {
		return c.Text
	}
	return header + "\n\n" + c.Text
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/wiki-rag/internal/index"
	"github.com/bull/wiki-rag/internal/indexer"
)

var indexFlags struct {
	corpus   string
	github   string
	out      string
	size     int
	overlap  float64
	markdown bool
	qdrant   bool
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk and embed the corpus into a vector index snapshot",
	Long: `Builds the vector index from scratch.

This command:
1. Loads the corpus from a JSONL file, a directory, or GitHub
2. Splits each document into overlapping chunks
3. Embeds every chunk with the configured provider
4. Writes a self-describing snapshot, and optionally mirrors the
   index into a Qdrant collection

Any failure aborts the build; a partial index is never written.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexFlags.corpus, "corpus", "corpus.jsonl", "corpus JSONL file or article directory")
	indexCmd.Flags().StringVar(&indexFlags.github, "github", "", "fetch corpus from GitHub instead (owner/repo[/path])")
	indexCmd.Flags().StringVar(&indexFlags.out, "out", "index.json", "snapshot output path")
	indexCmd.Flags().IntVar(&indexFlags.size, "chunk-size", 0, "chunk size in runes (default 1000)")
	indexCmd.Flags().Float64Var(&indexFlags.overlap, "chunk-overlap", 0, "chunk overlap fraction (default 0.15)")
	indexCmd.Flags().BoolVar(&indexFlags.markdown, "markdown", false, "split on markdown headings where possible")
	indexCmd.Flags().BoolVar(&indexFlags.qdrant, "qdrant", false, "also mirror the index into Qdrant")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	docs, err := loadCorpus(ctx, indexFlags.corpus, indexFlags.github)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	fmt.Printf("Loaded %d documents\n", len(docs))

	provider, err := newProvider()
	if err != nil {
		return err
	}

	splitter := newSplitter(indexFlags.size, indexFlags.overlap, indexFlags.markdown)
	pipeline := indexer.NewPipeline(splitter, provider, slog.Default())

	ix, result, err := pipeline.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := index.SaveFile(ix, indexFlags.out); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if indexFlags.qdrant {
		host := getEnv("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		fmt.Printf("Mirroring into Qdrant at %s:%d...\n", host, port)
		q, err := index.NewQdrant(host, port, provider.Name(), provider.Dimension())
		if err != nil {
			return fmt.Errorf("connect to Qdrant: %w", err)
		}
		defer q.Close()
		if err := q.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild collection: %w", err)
		}
		if err := indexer.Mirror(ctx, q, ix); err != nil {
			return fmt.Errorf("mirror index: %w", err)
		}
	}

	fmt.Println()
	fmt.Println("Index built!")
	fmt.Printf("  Documents: %d\n", result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Provider: %s (%d dims)\n", provider.Name(), provider.Dimension())
	fmt.Printf("  Snapshot: %s\n", indexFlags.out)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bull/wiki-rag/internal/backend"
	"github.com/bull/wiki-rag/internal/chunker"
	"github.com/bull/wiki-rag/internal/corpus"
	"github.com/bull/wiki-rag/internal/embedding"
	"github.com/bull/wiki-rag/internal/indexer"
)

// loadCorpus reads documents from a local path or a GitHub repo spec
// of the form owner/repo/base/path.
func loadCorpus(ctx context.Context, path, githubSpec string) ([]corpus.Document, error) {
	if githubSpec != "" {
		parts := strings.SplitN(githubSpec, "/", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid github spec %q, want owner/repo[/path]", githubSpec)
		}
		basePath := ""
		if len(parts) == 3 {
			basePath = parts[2]
		}
		client, err := corpus.NewGitHubClient()
		if err != nil {
			return nil, fmt.Errorf("create github client: %w", err)
		}
		fetcher := corpus.NewFetcher(client, parts[0], parts[1], basePath)
		return fetcher.FetchAll(ctx)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("corpus path: %w", err)
	}
	if info.IsDir() {
		return corpus.LoadDir(path)
	}
	return corpus.LoadJSONLFile(path)
}

// newProvider builds the embedding provider named by EMBEDDING_PROVIDER.
func newProvider() (embedding.Provider, error) {
	switch name := getEnv("EMBEDDING_PROVIDER", "openai"); name {
	case "openai":
		return embedding.NewOpenAI("", 0)
	case "ollama":
		return embedding.NewOllama(embedding.OllamaConfig{
			BaseURL: os.Getenv("OLLAMA_BASE_URL"),
			Model:   os.Getenv("OLLAMA_EMBED_MODEL"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
}

// newSplitter picks between plain window chunking and markdown-aware
// chunking.
func newSplitter(size int, overlap float64, markdownAware bool) indexer.Splitter {
	window := chunker.New(size, overlap)
	if markdownAware {
		return chunker.NewMarkdown(window)
	}
	return window
}

// backendConfig assembles the generation backend settings from flags
// and environment.
func backendConfig(provider, model string, timeout time.Duration, maxTokens int) backend.Config {
	return backend.Config{
		Provider:         provider,
		Model:            model,
		BaseURL:          os.Getenv("BACKEND_BASE_URL"),
		Timeout:          timeout,
		MaxContextTokens: maxTokens,
	}
}

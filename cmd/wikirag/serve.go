package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/wiki-rag/internal/backend"
	"github.com/bull/wiki-rag/internal/corpus"
	"github.com/bull/wiki-rag/internal/index"
	mcpserver "github.com/bull/wiki-rag/internal/mcp"
	"github.com/bull/wiki-rag/internal/prompt"
)

var serveFlags struct {
	index     string
	corpus    string
	provider  string
	model     string
	timeout   time.Duration
	maxTokens int
	httpMode  bool
	port      string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the corpus over the Model Context Protocol",
	Long: `Serves search_corpus, fetch_article, ask_corpus and index_status
as MCP tools, over stdio by default or Streamable HTTP with --http.

A health endpoint is always served at /health.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.index, "index", "index.json", "index snapshot path")
	serveCmd.Flags().StringVar(&serveFlags.corpus, "corpus", "corpus.jsonl", "corpus JSONL file or article directory")
	serveCmd.Flags().StringVar(&serveFlags.provider, "backend", "", "generation backend for ask_corpus (empty disables the tool)")
	serveCmd.Flags().StringVar(&serveFlags.model, "model", "", "generation model override")
	serveCmd.Flags().DurationVar(&serveFlags.timeout, "timeout", 60*time.Second, "per-generation timeout")
	serveCmd.Flags().IntVar(&serveFlags.maxTokens, "max-context-tokens", 4096, "prompt token budget for ask_corpus")
	serveCmd.Flags().BoolVar(&serveFlags.httpMode, "http", false, "serve MCP over HTTP instead of stdio")
	serveCmd.Flags().StringVar(&serveFlags.port, "port", "", "HTTP port (default: PORT env or 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	logger := slog.Default()

	provider, err := newProvider()
	if err != nil {
		return err
	}

	ix, err := index.LoadFile(serveFlags.index, provider.Name(), provider.Dimension())
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	handle := index.NewHandle(ix)

	docs, err := loadCorpus(ctx, serveFlags.corpus, "")
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	library := corpus.NewLibrary(docs)

	cfg := &mcpserver.Config{
		Provider:         provider,
		Handle:           handle,
		Library:          library,
		Assembler:        prompt.New(""),
		MaxContextTokens: serveFlags.maxTokens,
	}

	if serveFlags.provider != "" {
		gen, err := backend.New(backendConfig(serveFlags.provider, serveFlags.model, serveFlags.timeout, serveFlags.maxTokens))
		if err != nil {
			return fmt.Errorf("create backend: %w", err)
		}
		defer gen.Close()
		cfg.Backend = backend.WithRetry(gen)
	}

	server := mcpserver.NewServer(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(mcpserver.HealthFunc(func(context.Context) error {
		if handle.Current() == nil {
			return fmt.Errorf("no index published")
		}
		return nil
	})))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	port := serveFlags.port
	if port == "" {
		port = getEnv("PORT", "8080")
	}
	addr := "0.0.0.0:" + port

	if serveFlags.httpMode {
		logger.Info("Starting HTTP server", "addr", addr)
		return http.ListenAndServe(addr, mux)
	}

	// Stdio mode still serves /health in the background.
	go func() {
		logger.Info("Starting health server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting MCP server (stdio)", "chunks", ix.Len(), "documents", library.Len())
	return server.Run(ctx)
}

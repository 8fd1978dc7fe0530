// Package main provides the wikirag CLI: index building, interactive
// chat and the MCP server over one article corpus.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wikirag",
	Short: "Retrieval-augmented chat over a fixed article corpus",
	Long: `wikirag chunks and embeds a corpus of articles into a vector index,
then answers questions grounded in the retrieved passages.

Environment variables:
  EMBEDDING_PROVIDER  openai or ollama (default: openai)
  OPENAI_API_KEY      OpenAI API key (openai embeddings and backend)
  OLLAMA_BASE_URL     Ollama endpoint (default: http://localhost:11434)
  QDRANT_HOST         Qdrant hostname, used with --qdrant
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  LOG_LEVEL           debug, info, warn or error (default: info)`,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	// Load .env if present for local development, ignore if missing.
	_ = godotenv.Load()

	slog.SetDefault(newLogger())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

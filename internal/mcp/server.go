package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/wiki-rag/internal/backend"
	"github.com/bull/wiki-rag/internal/corpus"
	"github.com/bull/wiki-rag/internal/embedding"
	"github.com/bull/wiki-rag/internal/index"
	"github.com/bull/wiki-rag/internal/prompt"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Provider  embedding.Provider
	Handle    *index.Handle
	Library   *corpus.Library
	Assembler *prompt.Assembler
	Backend   backend.Backend

	// MaxContextTokens bounds prompts built by ask_corpus.
	MaxContextTokens int
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "wiki-rag-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the article corpus semantically. Returns matching passages with scores and provenance. Use fetch_article to get a full article.",
	}, makeSearchHandler(cfg.Provider, cfg.Handle))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_article",
		Description: "Retrieve a full article from the corpus by document ID.",
	}, makeFetchHandler(cfg.Library))

	if cfg.Backend != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "ask_corpus",
			Description: "Answer a question using only the corpus: retrieves relevant passages and generates a grounded answer with sources.",
		}, makeAskHandler(cfg))
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the published index: embedding provider, dimension, document and chunk counts, and build time.",
	}, makeStatusHandler(cfg.Handle, cfg.Library))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until the client
// disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance for transport
// handlers that need to wrap it.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/wiki-rag/internal/chat"
	"github.com/bull/wiki-rag/internal/corpus"
	"github.com/bull/wiki-rag/internal/embedding"
	"github.com/bull/wiki-rag/internal/index"
	"github.com/bull/wiki-rag/internal/retriever"
)

// makeSearchHandler creates the search_corpus tool handler. Each call
// builds a retriever with the caller's knobs over the shared handle, so
// the published index is read lock-free.
func makeSearchHandler(provider embedding.Provider, handle *index.Handle) func(
	context.Context, *mcp.CallToolRequest, SearchCorpusInput,
) (*mcp.CallToolResult, SearchCorpusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCorpusInput) (
		*mcp.CallToolResult, SearchCorpusOutput, error,
	) {
		r := retriever.New(provider, handle, retriever.Config{
			TopK:     input.MaxResults,
			MinScore: float32(input.MinScore),
		})

		results, err := r.Retrieve(ctx, input.Query)
		if err != nil {
			return nil, SearchCorpusOutput{}, fmt.Errorf("search failed: %w", err)
		}

		out := make([]PassageResult, 0, len(results))
		for _, res := range results {
			out = append(out, PassageResult{
				ChunkID: res.Record.ChunkID,
				DocID:   res.Record.DocID,
				Title:   res.Record.DocTitle,
				Section: res.Record.Section,
				Score:   float64(res.Score),
				Text:    res.Record.Text,
			})
		}

		if len(out) == 0 {
			return nil, SearchCorpusOutput{
				Results: []PassageResult{},
				Message: "No matching passages found. Try broader search terms.",
			}, nil
		}
		return nil, SearchCorpusOutput{Results: out}, nil
	}
}

// makeFetchHandler creates the fetch_article tool handler.
func makeFetchHandler(library *corpus.Library) func(
	context.Context, *mcp.CallToolRequest, FetchArticleInput,
) (*mcp.CallToolResult, FetchArticleOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FetchArticleInput) (
		*mcp.CallToolResult, FetchArticleOutput, error,
	) {
		doc, ok := library.Get(input.ID)
		if !ok {
			return nil, FetchArticleOutput{ID: input.ID, Found: false}, nil
		}
		return nil, FetchArticleOutput{
			ID:    doc.ID,
			Title: doc.Title,
			Text:  doc.Text,
			URL:   doc.URL,
			Found: true,
		}, nil
	}
}

// makeAskHandler creates the ask_corpus tool handler: a one-shot
// retrieve, assemble, and generate with the stream collected into a
// single answer.
func makeAskHandler(cfg *Config) func(
	context.Context, *mcp.CallToolRequest, AskCorpusInput,
) (*mcp.CallToolResult, AskCorpusOutput, error) {
	r := retriever.New(cfg.Provider, cfg.Handle, retriever.Config{})
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskCorpusInput) (
		*mcp.CallToolResult, AskCorpusOutput, error,
	) {
		results, err := r.Retrieve(ctx, input.Question)
		if err != nil {
			return nil, AskCorpusOutput{}, fmt.Errorf("retrieval failed: %w", err)
		}

		current := chat.NewMessage(chat.RoleUser, input.Question)
		rendered, err := cfg.Assembler.Assemble(nil, current, results, cfg.MaxContextTokens)
		if err != nil {
			return nil, AskCorpusOutput{}, fmt.Errorf("prompt assembly failed: %w", err)
		}

		stream, err := cfg.Backend.Generate(ctx, rendered)
		if err != nil {
			return nil, AskCorpusOutput{}, fmt.Errorf("generation failed: %w", err)
		}

		var answer strings.Builder
		for inc := range stream.Increments() {
			answer.WriteString(inc)
		}
		if err := stream.Err(); err != nil {
			return nil, AskCorpusOutput{}, fmt.Errorf("generation failed: %w", err)
		}

		sources := make([]string, 0, len(results))
		for _, res := range results {
			sources = append(sources, res.Record.ChunkID)
		}
		return nil, AskCorpusOutput{
			Answer:  answer.String(),
			Sources: sources,
		}, nil
	}
}

// makeStatusHandler creates the index_status tool handler. An empty
// status (zero counts, empty provider) means no index has been
// published yet.
func makeStatusHandler(handle *index.Handle, library *corpus.Library) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		out := StatusOutput{}
		if library != nil {
			out.TotalDocs = library.Len()
		}
		ix := handle.Current()
		if ix == nil {
			return nil, out, nil
		}
		out.Provider = ix.Provider()
		out.Dimension = ix.Dimension()
		out.TotalChunks = ix.Len()
		out.BuiltAt = ix.BuiltAt()
		return nil, out, nil
	}
}

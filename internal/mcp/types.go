// Package mcp exposes the corpus over the Model Context Protocol.
package mcp

import "time"

// SearchCorpusInput defines the input parameters for the search_corpus tool.
type SearchCorpusInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant passages"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of passages to return"`
	// MinScore is the minimum similarity threshold (0-1).
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0.35,description=Minimum similarity score threshold (0-1)"`
}

// SearchCorpusOutput contains the search results.
type SearchCorpusOutput struct {
	// Results is the list of matching passages.
	Results []PassageResult `json:"results"`
	// Message provides informational context (e.g. "No matching passages found").
	Message string `json:"message,omitempty"`
}

// PassageResult is a single chunk match from semantic search.
type PassageResult struct {
	// ChunkID identifies the chunk within its document.
	ChunkID string `json:"chunk_id"`
	// DocID is the source document identifier.
	DocID string `json:"doc_id"`
	// Title is the source document title.
	Title string `json:"title"`
	// Section is the heading path of the chunk, if any.
	Section string `json:"section,omitempty"`
	// Score is the cosine similarity (0-1).
	Score float64 `json:"score"`
	// Text is the chunk body.
	Text string `json:"text"`
}

// FetchArticleInput defines the input parameters for the fetch_article tool.
type FetchArticleInput struct {
	// ID is the document identifier to retrieve.
	ID string `json:"id" jsonschema:"required,description=The document identifier to retrieve"`
}

// FetchArticleOutput contains the retrieved article.
type FetchArticleOutput struct {
	// ID is the document identifier.
	ID string `json:"id"`
	// Title is the article title.
	Title string `json:"title"`
	// Text is the full article body.
	Text string `json:"text"`
	// URL is the source URL, if known.
	URL string `json:"url,omitempty"`
	// Found indicates whether the article exists.
	Found bool `json:"found"`
}

// AskCorpusInput defines the input parameters for the ask_corpus tool.
type AskCorpusInput struct {
	// Question is the natural-language question to answer from the corpus.
	Question string `json:"question" jsonschema:"required,description=The question to answer using the corpus"`
}

// AskCorpusOutput contains a grounded one-shot answer.
type AskCorpusOutput struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources lists the chunk IDs the answer was grounded on.
	Sources []string `json:"sources"`
}

// StatusInput defines the input parameters for the index_status tool.
// The tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the currently published index.
type StatusOutput struct {
	// Provider is the embedding provider fingerprint the index was built with.
	Provider string `json:"provider"`
	// Dimension is the vector width of the index.
	Dimension int `json:"dimension"`
	// TotalDocs is the number of documents in the corpus.
	TotalDocs int `json:"total_docs"`
	// TotalChunks is the number of indexed chunks.
	TotalChunks int `json:"total_chunks"`
	// BuiltAt is when the index build started.
	BuiltAt time.Time `json:"built_at"`
}

// Package chunker splits documents into retrieval-sized passages.
package chunker

import (
	"fmt"

	"github.com/bull/wiki-rag/internal/corpus"
)

// Default window configuration. A window of 1000 runes at 15% overlap
// keeps passages small enough to embed while still giving facts that
// straddle a boundary a home in at least one chunk.
const (
	DefaultSize    = 1000
	DefaultOverlap = 0.15
)

// Chunk is a contiguous slice of a document's text. Start and End are
// rune offsets into the source text; adjacent chunks overlap by the
// configured fraction. Chunks are never mutated after creation.
type Chunk struct {
	ID       string // "<doc-id>#<index>", stable across rebuilds
	DocID    string
	DocTitle string
	Index    int
	Start    int    // Inclusive rune offset
	End      int    // Exclusive rune offset
	Section  string // Heading path for markdown chunks, empty otherwise
	Text     string
}

// Chunker produces fixed-size overlapping windows over document text.
type Chunker struct {
	size    int     // Window size in runes
	overlap float64 // Fraction of the window shared with its predecessor
}

// New creates a chunker with the given window size (in runes) and
// overlap fraction. Out-of-range values fall back to the defaults;
// overlap is clamped below 1 so every window makes forward progress.
func New(size int, overlap float64) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= 1 {
		overlap = DefaultOverlap
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks a document into overlapping windows covering the full
// text with no gaps. A document shorter than the window yields exactly
// one chunk. Fails if the document has no text.
func (c *Chunker) Split(doc corpus.Document) ([]Chunk, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(doc.Text)
	step := c.size - int(float64(c.size)*c.overlap)
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			ID:       ChunkID(doc.ID, len(chunks)),
			DocID:    doc.ID,
			DocTitle: doc.Title,
			Index:    len(chunks),
			Start:    start,
			End:      end,
			Text:     string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

// ChunkID builds the stable identifier for chunk n of a document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s#%d", docID, index)
}

// Package index stores chunk vectors and answers nearest-neighbor
// queries over them.
package index

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Record is one indexed chunk: its vector plus enough text and
// provenance to build a prompt without going back to the corpus.
type Record struct {
	ChunkID  string    `json:"chunk_id"`
	DocID    string    `json:"doc_id"`
	DocTitle string    `json:"doc_title"`
	Section  string    `json:"section,omitempty"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"vector"`
}

// Hit is one search result: a chunk ID with its cosine similarity.
type Hit struct {
	ChunkID string
	Score   float32
}

// Index is an in-memory vector index using brute-force cosine
// similarity, which is exact and plenty fast at demo-corpus scale.
//
// An Index is built once by a single goroutine via Add, then treated as
// read-only. Read-only indexes are safe for concurrent searches without
// locking; a rebuild produces a fresh Index swapped in through a Handle.
type Index struct {
	provider  string
	dimension int
	builtAt   time.Time

	records []Record
	norms   []float32
	pos     map[string]int // chunk ID -> insertion position
}

// New creates an empty index bound to one provider configuration.
func New(provider string, dimension int) *Index {
	return &Index{
		provider:  provider,
		dimension: dimension,
		builtAt:   time.Now(),
		pos:       make(map[string]int),
	}
}

// Add appends a record during the build phase. Duplicate chunk IDs and
// wrong-width vectors are rejected. Not safe for concurrent use.
func (ix *Index) Add(rec Record) error {
	if _, ok := ix.pos[rec.ChunkID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChunk, rec.ChunkID)
	}
	if len(rec.Vector) != ix.dimension {
		return fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
			ErrDimensionMismatch, rec.ChunkID, len(rec.Vector), ix.dimension)
	}

	ix.pos[rec.ChunkID] = len(ix.records)
	ix.records = append(ix.records, rec)
	ix.norms = append(ix.norms, norm(rec.Vector))
	return nil
}

// Search returns up to k hits ordered by descending cosine similarity.
// Ties keep insertion order, so results are deterministic. Searching an
// empty index returns an empty slice.
func (ix *Index) Search(vector []float32, k int) ([]Hit, error) {
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), ix.dimension)
	}
	if k <= 0 || len(ix.records) == 0 {
		return []Hit{}, nil
	}

	qn := norm(vector)
	scores := make([]float32, len(ix.records))
	for i, rec := range ix.records {
		scores[i] = cosine(vector, qn, rec.Vector, ix.norms[i])
	}

	order := make([]int, len(ix.records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = Hit{ChunkID: ix.records[j].ChunkID, Score: scores[j]}
	}
	return hits, nil
}

// Get returns the record for a chunk ID.
func (ix *Index) Get(chunkID string) (Record, bool) {
	i, ok := ix.pos[chunkID]
	if !ok {
		return Record{}, false
	}
	return ix.records[i], true
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.records) }

// Records returns a copy of all records in insertion order.
func (ix *Index) Records() []Record {
	out := make([]Record, len(ix.records))
	copy(out, ix.records)
	return out
}

// Provider returns the embedding provider fingerprint this index was
// built with.
func (ix *Index) Provider() string { return ix.provider }

// Dimension returns the vector width of the index.
func (ix *Index) Dimension() int { return ix.dimension }

// BuiltAt returns when the index build started.
func (ix *Index) BuiltAt() time.Time { return ix.builtAt }

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosine(q []float32, qn float32, v []float32, vn float32) float32 {
	if qn == 0 || vn == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return float32(dot) / (qn * vn)
}

// Package corpus defines the source documents a conversation is grounded in
// and the loaders that bring them into memory.
package corpus

import (
	"sort"
	"strings"
	"time"
)

// Document is one source article. Documents are immutable once loaded;
// a rebuild of the index starts from a fresh load.
type Document struct {
	ID        string    // Stable identifier, unique within the corpus
	Title     string    // Human-readable title, used for provenance tags
	Text      string    // Raw article text
	URL       string    // Where the article came from, empty for local files
	FetchedAt time.Time // When the article was loaded
}

// Validate reports whether the document can be indexed.
// A document with no text (or only whitespace) is rejected.
func (d *Document) Validate() error {
	if d.ID == "" {
		return ErrInvalidDocument
	}
	if strings.TrimSpace(d.Text) == "" {
		return ErrInvalidDocument
	}
	return nil
}

// Library is a read-only collection of documents keyed by ID.
// It backs chunk-to-article resolution and the fetch/list tool surface.
type Library struct {
	docs  map[string]Document
	order []string
}

// NewLibrary builds a library from the given documents.
// Duplicate IDs keep the first occurrence.
func NewLibrary(docs []Document) *Library {
	lib := &Library{docs: make(map[string]Document, len(docs))}
	for _, d := range docs {
		if _, ok := lib.docs[d.ID]; ok {
			continue
		}
		lib.docs[d.ID] = d
		lib.order = append(lib.order, d.ID)
	}
	return lib
}

// Get returns the document with the given ID.
func (l *Library) Get(id string) (Document, bool) {
	d, ok := l.docs[id]
	return d, ok
}

// Len returns the number of documents in the library.
func (l *Library) Len() int { return len(l.docs) }

// Titles returns all document titles sorted alphabetically.
func (l *Library) Titles() []string {
	titles := make([]string, 0, len(l.docs))
	for _, id := range l.order {
		titles = append(titles, l.docs[id].Title)
	}
	sort.Strings(titles)
	return titles
}

// Documents returns all documents in load order.
func (l *Library) Documents() []Document {
	out := make([]Document, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.docs[id])
	}
	return out
}

package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/bull/wiki-rag/internal/corpus"
)

// TestSplit_ShortDocument tests that a document shorter than the window
// yields exactly one chunk covering the whole text.
func TestSplit_ShortDocument(t *testing.T) {
	doc := corpus.Document{ID: "doc-1", Title: "Short", Text: "A short article."}

	chunks, err := New(1000, 0.15).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("Chunk text: expected %q, got %q", doc.Text, chunks[0].Text)
	}
	if chunks[0].ID != "doc-1#0" {
		t.Errorf("Chunk ID: expected doc-1#0, got %q", chunks[0].ID)
	}
	if chunks[0].Start != 0 || chunks[0].End != len([]rune(doc.Text)) {
		t.Errorf("Chunk span: expected [0, %d), got [%d, %d)", len([]rune(doc.Text)), chunks[0].Start, chunks[0].End)
	}
}

// TestSplit_Coverage tests that consecutive chunks cover the full text
// with no gaps and the configured overlap.
func TestSplit_Coverage(t *testing.T) {
	text := strings.Repeat("abcdefghij", 50) // 500 runes
	doc := corpus.Document{ID: "doc-1", Text: text}

	chunks, err := New(100, 0.2).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	runes := []rune(text)
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("Chunk %d: index %d", i, c.Index)
		}
		if got := string(runes[c.Start:c.End]); got != c.Text {
			t.Errorf("Chunk %d text does not match its span", i)
		}
		if i > 0 {
			prev := chunks[i-1]
			if c.Start > prev.End {
				t.Errorf("Gap between chunk %d and %d: %d > %d", i-1, i, c.Start, prev.End)
			}
			if c.Start >= prev.Start+100 {
				t.Errorf("Chunk %d starts too late for 20%% overlap: %d", i, c.Start)
			}
		}
	}
	if last := chunks[len(chunks)-1]; last.End != len(runes) {
		t.Errorf("Last chunk ends at %d, want %d", last.End, len(runes))
	}
}

// TestSplit_OverlapStep tests the window step arithmetic.
func TestSplit_OverlapStep(t *testing.T) {
	text := strings.Repeat("x", 250)
	doc := corpus.Document{ID: "d", Text: text}

	chunks, err := New(100, 0.2).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// Step is 80 runes: windows start at 0, 80, 160, 240.
	wantStarts := []int{0, 80, 160, 240}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("Expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, want := range wantStarts {
		if chunks[i].Start != want {
			t.Errorf("Chunk %d start: expected %d, got %d", i, want, chunks[i].Start)
		}
	}
}

// TestSplit_EmptyDocument tests that documents with no usable text are
// rejected.
func TestSplit_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   \n\t  "} {
		_, err := New(0, 0).Split(corpus.Document{ID: "d", Text: text})
		if !errors.Is(err, corpus.ErrInvalidDocument) {
			t.Errorf("Text %q: expected ErrInvalidDocument, got %v", text, err)
		}
	}
}

// TestSplit_UnicodeOffsets tests that offsets count runes, not bytes.
func TestSplit_UnicodeOffsets(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 20) // 240 runes, more bytes
	doc := corpus.Document{ID: "d", Text: text}

	chunks, err := New(100, 0.1).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	runes := []rune(text)
	var rebuilt []rune
	for _, c := range chunks {
		if c.End > len(runes) {
			t.Fatalf("Chunk end %d beyond rune length %d", c.End, len(runes))
		}
		if c.Start >= len(rebuilt) {
			rebuilt = append(rebuilt, runes[c.Start:c.End]...)
		} else {
			rebuilt = append(rebuilt[:c.Start], runes[c.Start:c.End]...)
		}
	}
	if string(rebuilt) != text {
		t.Error("Chunks do not reconstruct the original text")
	}
}

// TestNew_Defaults tests out-of-range config fallback.
func TestNew_Defaults(t *testing.T) {
	c := New(-5, 1.5)
	if c.size != DefaultSize {
		t.Errorf("size: expected %d, got %d", DefaultSize, c.size)
	}
	if c.overlap != DefaultOverlap {
		t.Errorf("overlap: expected %v, got %v", DefaultOverlap, c.overlap)
	}
}

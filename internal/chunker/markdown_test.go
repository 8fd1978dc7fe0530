package chunker

import (
	"strings"
	"testing"

	"github.com/bull/wiki-rag/internal/corpus"
)

// TestMarkdownSplit_BasicHeaders tests splitting at H1 and H2
// boundaries with header paths.
func TestMarkdownSplit_BasicHeaders(t *testing.T) {
	doc := corpus.Document{
		ID:    "go",
		Title: "Go (programming language)",
		Text: `# Go

Go is a statically typed language.

## History

Designed at Google in 2007.

## Syntax

Go has a C-like syntax.
`,
	}

	chunks, err := NewMarkdown(nil).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	if chunks[0].Section != "Go" {
		t.Errorf("Chunk 0 section: expected 'Go', got %q", chunks[0].Section)
	}
	if !strings.Contains(chunks[0].Text, "statically typed") {
		t.Errorf("Chunk 0 missing expected content")
	}

	if chunks[1].Section != "Go > History" {
		t.Errorf("Chunk 1 section: expected 'Go > History', got %q", chunks[1].Section)
	}
	if !strings.Contains(chunks[1].Text, "Google in 2007") {
		t.Errorf("Chunk 1 missing expected content")
	}

	if chunks[2].Section != "Go > Syntax" {
		t.Errorf("Chunk 2 section: expected 'Go > Syntax', got %q", chunks[2].Section)
	}

	for i, c := range chunks {
		if c.ID != ChunkID("go", i) {
			t.Errorf("Chunk %d ID: got %q", i, c.ID)
		}
		if c.DocTitle != doc.Title {
			t.Errorf("Chunk %d title: got %q", i, c.DocTitle)
		}
	}
}

// TestMarkdownSplit_Preamble tests that text before the first heading
// becomes its own chunk.
func TestMarkdownSplit_Preamble(t *testing.T) {
	doc := corpus.Document{
		ID: "d",
		Text: `Leading text before any heading.

# First

Body.
`,
	}

	chunks, err := NewMarkdown(nil).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Section != "" {
		t.Errorf("Preamble chunk should have no section, got %q", chunks[0].Section)
	}
	if !strings.Contains(chunks[0].Text, "Leading text") {
		t.Errorf("Preamble chunk missing leading text")
	}
	if chunks[0].Start != 0 {
		t.Errorf("Preamble should start at 0, got %d", chunks[0].Start)
	}
}

// TestMarkdownSplit_BlankPreamble tests that blank lines before the
// first heading fold into the first section, keeping spans contiguous
// from offset zero.
func TestMarkdownSplit_BlankPreamble(t *testing.T) {
	doc := corpus.Document{
		ID: "d",
		Text: `

# First

Body.

## Second

More.
`,
	}

	chunks, err := NewMarkdown(nil).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 {
		t.Errorf("First chunk should start at 0, got %d", chunks[0].Start)
	}
	if chunks[0].Section != "First" {
		t.Errorf("First chunk section: expected 'First', got %q", chunks[0].Section)
	}
	if chunks[1].Start != chunks[0].End {
		t.Errorf("Gap in coverage: chunk 0 ends at %d, chunk 1 starts at %d", chunks[0].End, chunks[1].Start)
	}
	if chunks[len(chunks)-1].End != len([]rune(doc.Text)) {
		t.Errorf("Last chunk should end at the document end")
	}
}

// TestMarkdownSplit_NoHeadings tests fallback to plain windowing.
func TestMarkdownSplit_NoHeadings(t *testing.T) {
	doc := corpus.Document{ID: "d", Text: "Plain prose with no markdown structure at all."}

	chunks, err := NewMarkdown(New(1000, 0.15)).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 fallback chunk, got %d", len(chunks))
	}
	if chunks[0].Section != "" {
		t.Errorf("Fallback chunk should have no section")
	}
	if chunks[0].Text != doc.Text {
		t.Errorf("Fallback chunk should cover the document")
	}
}

// TestMarkdownSplit_OversizedSection tests that a section much larger
// than the window is re-windowed but keeps its header path.
func TestMarkdownSplit_OversizedSection(t *testing.T) {
	body := strings.Repeat("Lorem ipsum dolor sit amet. ", 30)
	doc := corpus.Document{
		ID:   "d",
		Text: "# Big\n\n" + body,
	}

	chunks, err := NewMarkdown(New(100, 0.1)).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(chunks) < 2 {
		t.Fatalf("Expected the oversized section to be re-windowed, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if c.Section != "Big" {
			t.Errorf("Chunk %d section: expected 'Big', got %q", i, c.Section)
		}
		if c.Index != i {
			t.Errorf("Chunk %d: index %d", i, c.Index)
		}
	}
}

// TestMarkdownSplit_SpansMatchText tests that rune spans index back
// into the source document.
func TestMarkdownSplit_SpansMatchText(t *testing.T) {
	doc := corpus.Document{
		ID: "d",
		Text: `# Héading

Ünicode body text.

## Nëxt

More tëxt.
`,
	}

	chunks, err := NewMarkdown(nil).Split(doc)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	runes := []rune(doc.Text)
	for i, c := range chunks {
		if got := string(runes[c.Start:c.End]); got != c.Text {
			t.Errorf("Chunk %d span [%d, %d) does not match its text", i, c.Start, c.End)
		}
	}
}

package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"

	"github.com/bull/wiki-rag/internal/corpus"
)

// MarkdownChunker splits markdown documents at H1/H2 boundaries instead
// of fixed windows, so each chunk is one coherent section. Sections
// larger than the fallback window are re-windowed. Text before the
// first heading becomes its own chunk, so the chunks still cover the
// whole document.
type MarkdownChunker struct {
	parser   goldmark.Markdown
	fallback *Chunker
}

// NewMarkdown creates a markdown-aware chunker. The fallback window
// chunker handles oversized sections and heading-free documents.
func NewMarkdown(fallback *Chunker) *MarkdownChunker {
	if fallback == nil {
		fallback = New(0, -1)
	}
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &MarkdownChunker{parser: md, fallback: fallback}
}

// section is a half-open byte range of the source with its header context.
type section struct {
	start      int
	end        int
	headerPath string
}

// Split chunks a markdown document at section boundaries.
func (c *MarkdownChunker) Split(doc corpus.Document) ([]Chunk, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	source := []byte(doc.Text)
	root := c.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(root, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect outline: %w", err)
	}

	// No headings at all: fall back to plain windowing.
	if len(tree.Items) == 0 {
		return c.fallback.Split(doc)
	}

	sections := collectSections(root, source, tree.Items)
	if len(sections) == 0 {
		return c.fallback.Split(doc)
	}

	var chunks []Chunk
	byteOff, runeOff := 0, 0
	for _, sec := range sections {
		// Byte offsets from goldmark become rune offsets by counting
		// forward from the previous section; sections are in order.
		runeStart := runeOff + utf8.RuneCount(source[byteOff:sec.start])
		runeEnd := runeStart + utf8.RuneCount(source[sec.start:sec.end])
		byteOff, runeOff = sec.end, runeEnd

		body := doc.Text[sec.start:sec.end]
		if runeEnd-runeStart > 2*c.fallback.size {
			sub, err := c.fallback.Split(corpus.Document{
				ID:    doc.ID,
				Title: doc.Title,
				Text:  body,
			})
			if err != nil {
				return nil, err
			}
			for _, s := range sub {
				chunks = append(chunks, Chunk{
					ID:       ChunkID(doc.ID, len(chunks)),
					DocID:    doc.ID,
					DocTitle: doc.Title,
					Index:    len(chunks),
					Start:    runeStart + s.Start,
					End:      runeStart + s.End,
					Section:  sec.headerPath,
					Text:     s.Text,
				})
			}
			continue
		}

		chunks = append(chunks, Chunk{
			ID:       ChunkID(doc.ID, len(chunks)),
			DocID:    doc.ID,
			DocTitle: doc.Title,
			Index:    len(chunks),
			Start:    runeStart,
			End:      runeEnd,
			Section:  sec.headerPath,
			Text:     body,
		})
	}

	return chunks, nil
}

// collectSections turns the outline into ordered byte ranges. The range
// before the first heading (the preamble) is kept when non-empty.
func collectSections(root ast.Node, source []byte, items toc.Items) []section {
	type boundary struct {
		offset     int
		headerPath string
	}

	var bounds []boundary
	var flatten func(items toc.Items, ancestors []string)
	flatten = func(items toc.Items, ancestors []string) {
		for _, item := range items {
			path := append(append([]string{}, ancestors...), string(item.Title))
			node := headingByID(root, string(item.ID))
			if node != nil && node.Lines().Len() > 0 {
				bounds = append(bounds, boundary{
					offset:     headingStart(source, node.Lines().At(0).Start),
					headerPath: strings.Join(path, " > "),
				})
			}
			if len(item.Items) > 0 {
				flatten(item.Items, path)
			}
		}
	}
	flatten(items, nil)

	if len(bounds) == 0 {
		return nil
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].offset < bounds[j].offset })

	// A whitespace-only preamble is folded into the first section so the
	// chunk spans still cover the document from offset zero.
	var sections []section
	if bounds[0].offset > 0 {
		if strings.TrimSpace(string(source[:bounds[0].offset])) == "" {
			bounds[0].offset = 0
		} else {
			sections = append(sections, section{start: 0, end: bounds[0].offset})
		}
	}
	for i, b := range bounds {
		end := len(source)
		if i+1 < len(bounds) {
			end = bounds[i+1].offset
		}
		sections = append(sections, section{start: b.offset, end: end, headerPath: b.headerPath})
	}
	return sections
}

// headingByID locates a heading node by its auto-generated ID.
func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if attr, ok := n.AttributeString("id"); ok {
				if string(attr.([]byte)) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// headingStart walks back from the heading text to the start of its
// line, so the "#" markers are part of the section.
func headingStart(source []byte, textStart int) int {
	i := textStart
	for i > 0 && source[i-1] != '\n' {
		i--
	}
	return i
}

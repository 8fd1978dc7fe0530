package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// jsonlRecord is the on-disk passage format: one JSON object per line.
type jsonlRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}

// LoadJSONL reads documents from a JSON-lines stream.
// Blank lines are skipped; a malformed line fails the whole load.
func LoadJSONL(r io.Reader) ([]Document, error) {
	var docs []Document
	now := time.Now()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		doc := Document{
			ID:        rec.ID,
			Title:     rec.Title,
			Text:      rec.Text,
			URL:       rec.URL,
			FetchedAt: now,
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("doc-%d", line)
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	return docs, nil
}

// LoadJSONLFile reads documents from a JSON-lines file on disk.
func LoadJSONLFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return LoadJSONL(f)
}

// LoadDir reads every .txt and .md file under root as one document each.
// The document ID is the path relative to root; the title is the file
// name without its extension.
func LoadDir(root string) ([]Document, error) {
	var docs []Document
	now := time.Now()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		doc := Document{
			ID:        filepath.ToSlash(rel),
			Title:     strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Text:      string(data),
			FetchedAt: now,
		}
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no .txt or .md documents under %s", root)
	}
	return docs, nil
}

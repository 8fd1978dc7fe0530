package corpus

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Fetcher pulls a corpus of .md/.txt articles out of a GitHub repository.
// It is an alternative to LoadDir for corpora published as a repo.
type Fetcher struct {
	client   *github.Client
	owner    string
	repo     string
	basePath string
}

// NewGitHubClient creates a GitHub API client with automatic rate-limit
// handling. If GITHUB_TOKEN is set the client is authenticated, which
// raises the rate limit from 60 to 5000 requests per hour.
func NewGitHubClient() (*github.Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}
	return client, nil
}

// NewFetcher creates a fetcher rooted at basePath inside owner/repo.
func NewFetcher(client *github.Client, owner, repo, basePath string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
	}
}

// FetchAll lists and downloads every article under the base path.
func (f *Fetcher) FetchAll(ctx context.Context) ([]Document, error) {
	paths, err := f.listArticles(ctx, f.basePath, "")
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	docs := make([]Document, 0, len(paths))
	for _, rel := range paths {
		doc, err := f.fetchArticle(ctx, rel)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rel, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// listArticles recursively collects .md and .txt paths relative to basePath.
func (f *Fetcher) listArticles(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var articles []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			ext := strings.ToLower(path.Ext(*item.Name))
			if ext == ".md" || ext == ".txt" {
				articles = append(articles, itemRelPath)
			}
		case "dir":
			sub, err := f.listArticles(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			articles = append(articles, sub...)
		}
	}

	return articles, nil
}

// fetchArticle downloads one file and converts it into a Document.
func (f *Fetcher) fetchArticle(ctx context.Context, relativePath string) (Document, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return Document{}, fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return Document{}, fmt.Errorf("no file content returned for %s", fullPath)
	}

	raw, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return Document{}, fmt.Errorf("decode content of %s: %w", fullPath, err)
	}

	text := string(raw)
	doc := Document{
		ID:        relativePath,
		Title:     articleTitle(relativePath, text),
		Text:      text,
		URL:       fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/main/%s", f.owner, f.repo, fullPath),
		FetchedAt: time.Now(),
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// articleTitle prefers the first markdown H1, falling back to the file name.
func articleTitle(relativePath, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
		if line != "" {
			break
		}
	}
	name := path.Base(relativePath)
	return strings.TrimSuffix(name, path.Ext(name))
}

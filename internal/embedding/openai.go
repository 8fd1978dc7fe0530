package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// DefaultOpenAIModel is the embedding model used unless overridden.
	DefaultOpenAIModel = "text-embedding-3-small"

	// openAIDimension is the vector width of text-embedding-3-small.
	openAIDimension = 1536

	// DefaultBatchSize balances requests-per-minute against
	// tokens-per-minute rate limits. OpenAI accepts up to 2048 texts
	// per request; smaller batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// OpenAI embeds text through the OpenAI embeddings API. Requests are
// batched, and rate-limited batches are retried with exponential
// backoff.
type OpenAI struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
}

// NewOpenAI creates an OpenAI embedding provider. The API key comes
// from the OPENAI_API_KEY environment variable. A batchSize of 0 uses
// DefaultBatchSize.
func NewOpenAI(model string, batchSize int) (*OpenAI, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrUnavailable)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// openai-go reads OPENAI_API_KEY from the environment.
	client := openai.NewClient()

	return &OpenAI{
		client:    &client,
		model:     model,
		dimension: openAIDimension,
		batchSize: batchSize,
	}, nil
}

// Embed generates one vector per text, batching requests.
func (p *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += p.batchSize {
		end := min(i+p.batchSize, len(texts))

		vectors, err := p.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// embedBatch embeds a single batch, retrying on HTTP 429 with
// exponential backoff. Other API errors are permanent.
func (p *OpenAI) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: p.model,
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimension returns the vector width.
func (p *OpenAI) Dimension() int { return p.dimension }

// Name identifies the provider+model pair.
func (p *OpenAI) Name() string { return "openai/" + p.model }

// isRateLimitError checks for an HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows API float64 vectors for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// qdrant collection layout. One collection of chunk points plus a
// single reserved metadata point (numeric ID 0) that records the
// embedding provider and dimension, so a mismatched provider is
// detected when the collection is opened rather than at query time.
const (
	qdrantCollection = "wiki_chunks"
	metaPointID      = uint64(0)
)

// chunkIDNamespace maps stable chunk IDs onto the UUID point IDs Qdrant
// requires.
var chunkIDNamespace = uuid.MustParse("9f2c7e46-31ab-4c31-9f4e-5b8a2f6d0c11")

// Qdrant is a remote vector index backed by a Qdrant server. It is the
// persistent alternative to the in-memory Index for corpora too large
// to rebuild on every start.
type Qdrant struct {
	client    *qdrant.Client
	provider  string
	dimension int
}

// NewQdrant connects to a Qdrant server and verifies it is healthy,
// retrying with exponential backoff before giving up.
func NewQdrant(host string, port int, provider string, dimension int) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	q := &Qdrant{client: client, provider: provider, dimension: dimension}

	if err := q.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}
	return q, nil
}

// healthCheckWithRetry probes health with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (q *Qdrant) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error { return q.Health(ctx) }, exponentialBackoff)
}

// Health performs a single health check.
func (q *Qdrant) Health(ctx context.Context) error {
	result, err := q.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection if missing and writes
// the provider metadata point. If the collection already exists, the
// stored provider and dimension are checked against the configured
// ones; a mismatch is rejected rather than silently mixed.
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	collections, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range collections {
		if name == qdrantCollection {
			return q.verifyMeta(ctx)
		}
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: qdrantCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	return q.writeMeta(ctx)
}

// writeMeta stores the provider fingerprint on the reserved point.
func (q *Qdrant) writeMeta(ctx context.Context) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(metaPointID),
		Vectors: qdrant.NewVectors(make([]float32, q.dimension)...),
		Payload: qdrant.NewValueMap(map[string]any{
			"type":      "meta",
			"provider":  q.provider,
			"dimension": q.dimension,
		}),
	}
	return q.upsertWithRetry(ctx, []*qdrant.PointStruct{point})
}

// verifyMeta checks an existing collection against the configured
// provider.
func (q *Qdrant) verifyMeta(ctx context.Context) error {
	result, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: qdrantCollection,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(metaPointID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return fmt.Errorf("read collection metadata: %w", err)
	}
	if len(result) == 0 {
		// Pre-metadata collection: adopt it and stamp it.
		return q.writeMeta(ctx)
	}

	payload := result[0].Payload
	if p := payload["provider"].GetStringValue(); p != q.provider {
		return fmt.Errorf("%w: collection built with %q, configured %q",
			ErrProviderMismatch, p, q.provider)
	}
	if d := int(payload["dimension"].GetIntegerValue()); d != q.dimension {
		return fmt.Errorf("%w: collection has %d dimensions, configured %d",
			ErrDimensionMismatch, d, q.dimension)
	}
	return nil
}

// Rebuild drops and recreates the collection. Unlike the in-memory
// handle swap this is not atomic for concurrent readers; it is meant
// for offline re-indexing.
func (q *Qdrant) Rebuild(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, qdrantCollection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return q.EnsureCollection(ctx)
}

// upsertWithRetry retries transient upsert failures with backoff.
func (q *Qdrant) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: qdrantCollection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, exponentialBackoff)
}

// AddBatch upserts records in groups of 100.
func (q *Qdrant) AddBatch(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	for i, rec := range records {
		if len(rec.Vector) != q.dimension {
			return fmt.Errorf("%w: record %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(rec.Vector), q.dimension)
		}
	}

	const batchSize = 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		batch := records[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, rec := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(rec.ChunkID)),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"type":      "chunk",
					"chunk_id":  rec.ChunkID,
					"doc_id":    rec.DocID,
					"doc_title": rec.DocTitle,
					"section":   rec.Section,
					"text":      rec.Text,
				}),
			}
		}

		if err := q.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Search queries the collection, excluding the metadata point.
func (q *Qdrant) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if len(vector) != q.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), q.dimension)
	}

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: qdrantCollection,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("type", "chunk")},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayloadInclude("chunk_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		hits = append(hits, Hit{
			ChunkID: result.Payload["chunk_id"].GetStringValue(),
			Score:   result.Score,
		})
	}
	return hits, nil
}

// Get resolves a chunk ID to its stored record. The vector is not
// returned; callers only need text and provenance.
func (q *Qdrant) Get(ctx context.Context, chunkID string) (Record, error) {
	result, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: qdrantCollection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(chunkID))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("get chunk: %w", err)
	}
	if len(result) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrChunkNotFound, chunkID)
	}

	payload := result[0].Payload
	if payload["type"].GetStringValue() != "chunk" {
		return Record{}, fmt.Errorf("%w: %s", ErrChunkNotFound, chunkID)
	}

	return Record{
		ChunkID:  payload["chunk_id"].GetStringValue(),
		DocID:    payload["doc_id"].GetStringValue(),
		DocTitle: payload["doc_title"].GetStringValue(),
		Section:  payload["section"].GetStringValue(),
		Text:     payload["text"].GetStringValue(),
	}, nil
}

// Count returns the number of chunk points in the collection.
func (q *Qdrant) Count(ctx context.Context) (int, error) {
	collection, err := q.client.GetCollectionInfo(ctx, qdrantCollection)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		return 0, fmt.Errorf("get collection: %w", err)
	}

	// One point is the reserved metadata point.
	n := int(collection.GetPointsCount())
	if n > 0 {
		n--
	}
	return n, nil
}

// Close releases the client connection.
func (q *Qdrant) Close() error {
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// pointID derives the deterministic UUID Qdrant point ID for a chunk.
func pointID(chunkID string) string {
	return uuid.NewSHA1(chunkIDNamespace, []byte(chunkID)).String()
}

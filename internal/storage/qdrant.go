package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize keeps individual gRPC messages small.
const upsertBatchSize = 100

// QdrantStore wraps the Qdrant client with connection management and health checks.
// Each syllabus gets its own Qdrant collection.
type QdrantStore struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStore creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStore(host string, port int, apiKey string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client: client,
		host:   host,
		port:   port,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// newBackoff returns the retry policy shared by connect and upsert.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, newBackoff(ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection with cosine distance if it does not exist.
func (s *QdrantStore) ensureCollection(ctx context.Context, name string, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, newBackoff(ctx))
}

// UpsertChunks stores chunks with embeddings, creating the collection on first use.
// Chunks are batched in groups of 100.
func (s *QdrantStore) UpsertChunks(ctx context.Context, collection string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dimension, err := uniformDimension(chunks)
	if err != nil {
		return err
	}
	if err := s.ensureCollection(ctx, collection, dimension); err != nil {
		return err
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"chunk_index": chunk.Index,
					"page":        chunk.Page,
					"source":      chunk.Source,
					"content":     chunk.Content,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// Search performs vector similarity search in one collection.
func (s *QdrantStore) Search(ctx context.Context, collection string, embedding []float32, limit int) ([]*ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		scored = append(scored, &ScoredChunk{
			Chunk: &Chunk{
				ID:      result.Id.GetUuid(),
				Index:   int(payload["chunk_index"].GetIntegerValue()),
				Page:    int(payload["page"].GetIntegerValue()),
				Source:  payload["source"].GetStringValue(),
				Content: payload["content"].GetStringValue(),
			},
			Score: float64(result.Score),
		})
	}
	return scored, nil
}

// DeleteCollection drops the collection if it exists.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

// ListCollections returns all collection names, sorted.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ VectorStore = (*QdrantStore)(nil)

// uniformDimension checks that every chunk carries a vector of the same size.
func uniformDimension(chunks []*Chunk) (int, error) {
	dimension := len(chunks[0].Embedding)
	if dimension == 0 {
		return 0, fmt.Errorf("%w: chunk 0", ErrEmptyEmbedding)
	}
	for i, chunk := range chunks {
		if len(chunk.Embedding) != dimension {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), dimension)
		}
	}
	return dimension, nil
}

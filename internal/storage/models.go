package storage

import "context"

// Chunk is one window of syllabus text together with its embedding.
type Chunk struct {
	ID        string    // UUID
	Index     int       // position in the source document (0, 1, 2...)
	Page      int       // 1-based source page
	Source    string    // original file name, used in references
	Content   string    // chunk text
	Embedding []float32 // not populated on search results
}

// ScoredChunk is a search hit with its cosine similarity.
type ScoredChunk struct {
	*Chunk
	Score float64
}

// VectorStore keeps one named collection of chunk embeddings per syllabus.
// Collections are created on first upsert with the dimension of the first
// vector and are never shared.
type VectorStore interface {
	UpsertChunks(ctx context.Context, collection string, chunks []*Chunk) error
	// Search returns up to limit chunks ordered by similarity, best first.
	// It fails with ErrCollectionNotFound for unknown collections.
	Search(ctx context.Context, collection string, embedding []float32, limit int) ([]*ScoredChunk, error)
	// DeleteCollection drops a collection. Deleting a missing collection is not an error.
	DeleteCollection(ctx context.Context, collection string) error
	ListCollections(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

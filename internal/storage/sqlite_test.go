package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testChunk(index, page int, content string, embedding ...float32) *Chunk {
	return &Chunk{
		ID:        uuid.NewString(),
		Index:     index,
		Page:      page,
		Source:    "syllabus.pdf",
		Content:   content,
		Embedding: embedding,
	}
}

func TestSQLiteStore_SearchOrdersByCosine(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	err := store.UpsertChunks(ctx, "syllabus_a", []*Chunk{
		testChunk(0, 1, "sorting", 1, 0, 0),
		testChunk(1, 2, "graphs", 0, 1, 0),
		testChunk(2, 3, "mostly sorting", 0.9, 0.1, 0),
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "syllabus_a", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "sorting", results[0].Content)
	assert.Equal(t, 1, results[0].Page)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "mostly sorting", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSQLiteStore_CollectionsAreIsolated(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunks(ctx, "syllabus_a", []*Chunk{testChunk(0, 1, "from A", 1, 0)}))
	require.NoError(t, store.UpsertChunks(ctx, "syllabus_b", []*Chunk{testChunk(0, 1, "from B", 1, 0)}))

	results, err := store.Search(ctx, "syllabus_b", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "from B", results[0].Content)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"syllabus_a", "syllabus_b"}, names)
}

func TestSQLiteStore_SearchUnknownCollection(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Search(context.Background(), "syllabus_missing", []float32{1}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestSQLiteStore_DimensionMismatch(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunks(ctx, "syllabus_a", []*Chunk{testChunk(0, 1, "x", 1, 0, 0)}))

	err := store.UpsertChunks(ctx, "syllabus_a", []*Chunk{testChunk(1, 1, "y", 1, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = store.UpsertChunks(ctx, "syllabus_c", []*Chunk{
		testChunk(0, 1, "x", 1, 0),
		testChunk(1, 1, "y", 1, 0, 0),
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.Search(ctx, "syllabus_a", []float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSQLiteStore_EmptyEmbedding(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	err := store.UpsertChunks(ctx, "syllabus_a", []*Chunk{testChunk(0, 1, "x")})
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	_, err = store.Search(ctx, "syllabus_a", nil, 3)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestSQLiteStore_DeleteCollection(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunks(ctx, "syllabus_a", []*Chunk{testChunk(0, 1, "x", 1, 0)}))
	require.NoError(t, store.DeleteCollection(ctx, "syllabus_a"))
	require.NoError(t, store.DeleteCollection(ctx, "syllabus_a"), "deleting twice is fine")

	_, err := store.Search(ctx, "syllabus_a", []float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenSQLiteStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.UpsertChunks(ctx, "syllabus_a", []*Chunk{testChunk(0, 4, "kept", 0, 1)}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "syllabus_a", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kept", results[0].Content)
	assert.Equal(t, 4, results[0].Page)
}

func TestEmbeddingEncoding(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	decoded, err := decodeEmbedding(encodeEmbedding(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, cosine([]float32{1}, []float32{1, 0}))
}

func TestOpen(t *testing.T) {
	store, err := Open(Options{Backend: BackendSQLite, Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Health(context.Background()))

	_, err = Open(Options{Backend: "chroma"})
	assert.Error(t, err)
}

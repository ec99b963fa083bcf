package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// SQLiteFileName is the database file created inside the vector directory.
const SQLiteFileName = "vectors.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    dimension  INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
    id          TEXT PRIMARY KEY,
    collection  TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    page        INTEGER NOT NULL,
    source      TEXT,
    content     TEXT NOT NULL,
    embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
`

// SQLiteStore keeps every collection in one SQLite database on local disk.
// Similarity search is an exact cosine scan over the collection's rows, which
// is plenty for a single syllabus worth of chunks.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) dir/vectors.db.
func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}
	dsn := "file:" + filepath.Join(dir, SQLiteFileName) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an open database and ensures the schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("storage: db is nil")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// UpsertChunks writes all chunks in one transaction, creating the collection
// with the dimension of the first vector when it does not exist yet.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, collection string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	dimension, err := uniformDimension(chunks)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections(name, dimension, created_at) VALUES(?, ?, ?)`,
		collection, dimension, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, collection,
	).Scan(&existing); err != nil {
		return fmt.Errorf("read collection %s: %w", collection, err)
	}
	if existing != dimension {
		return fmt.Errorf("%w: collection %s has %d dimensions, got %d",
			ErrDimensionMismatch, collection, existing, dimension)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks
        (id, collection, chunk_index, page, source, content, embedding)
        VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.ID, collection, c.Index, c.Page, c.Source, c.Content, encodeEmbedding(c.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Search scores every chunk of the collection against embedding and returns
// the best limit hits. Ties keep document order.
func (s *SQLiteStore) Search(ctx context.Context, collection string, embedding []float32, limit int) ([]*ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	var dimension int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, collection,
	).Scan(&dimension)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	if dimension != len(embedding) {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s has %d",
			ErrDimensionMismatch, len(embedding), collection, dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, chunk_index, page, source, content, embedding
        FROM chunks WHERE collection = ? ORDER BY chunk_index`, collection)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var scored []*ScoredChunk
	for rows.Next() {
		var (
			c      Chunk
			source sql.NullString
			blob   []byte
		)
		if err := rows.Scan(&c.ID, &c.Index, &c.Page, &source, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		c.Source = source.String
		scored = append(scored, &ScoredChunk{Chunk: &c, Score: cosine(embedding, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// DeleteCollection removes the collection and all of its chunks.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return tx.Commit()
}

// ListCollections returns all collection names, sorted.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ VectorStore = (*SQLiteStore)(nil)

// encodeEmbedding stores float32 values as little-endian IEEE 754 without a
// length prefix; the length comes from the BLOB size.
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("storage: invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// cosine returns 0 for mismatched or zero-magnitude vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na += va * va
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

package storage

import "fmt"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Options select and address a vector store backend.
type Options struct {
	Backend      string
	Dir          string // SQLite
	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
}

// Open returns the configured backend.
func Open(opts Options) (VectorStore, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return OpenSQLiteStore(opts.Dir)
	case BackendQdrant:
		return NewQdrantStore(opts.QdrantHost, opts.QdrantPort, opts.QdrantAPIKey)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", opts.Backend)
	}
}

// Package indexer turns an uploaded syllabus PDF into a populated vector
// collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bull/syllabus-coach/internal/embedding"
	"github.com/bull/syllabus-coach/internal/logger"
	"github.com/bull/syllabus-coach/internal/pdf"
	"github.com/bull/syllabus-coach/internal/splitter"
	"github.com/bull/syllabus-coach/internal/storage"
)

// ErrNoChunks means text was extracted but splitting produced nothing to embed.
var ErrNoChunks = errors.New("PDF loaded but produced no chunks after splitting")

// IngestResult contains statistics about one ingestion.
type IngestResult struct {
	Collection string
	Pages      int
	Chunks     int
	Duration   time.Duration
}

// Extractor reads per-page text from a PDF on disk.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) ([]pdf.Page, error)
}

// Splitter breaks pages into overlapping chunks.
type Splitter interface {
	SplitPages(pages []splitter.Page) []splitter.Chunk
}

// ChunkWriter is the part of storage.VectorStore ingestion needs.
type ChunkWriter interface {
	UpsertChunks(ctx context.Context, collection string, chunks []*storage.Chunk) error
	DeleteCollection(ctx context.Context, collection string) error
}

// Pipeline orchestrates extract, split, embed and store for one document.
type Pipeline struct {
	extractor Extractor
	splitter  Splitter
	embedder  embedding.TextEmbedder
	store     ChunkWriter
	log       *logger.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	extractor Extractor,
	splitter Splitter,
	embedder embedding.TextEmbedder,
	store ChunkWriter,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		log:       log.With("component", "indexer"),
	}
}

// Ingest loads the PDF at pdfPath into collection. On error no usable
// collection is left behind: anything written before the failure is dropped.
func (p *Pipeline) Ingest(ctx context.Context, pdfPath, collection string) (*IngestResult, error) {
	start := time.Now()
	log := p.log.With("collection", collection)

	pages, err := p.extractor.ExtractFile(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	log.Debug("Extracted pages", "pages", len(pages))

	input := make([]splitter.Page, len(pages))
	for i, page := range pages {
		input[i] = splitter.Page{Number: page.Number, Text: page.Text}
	}
	chunks := p.splitter.SplitPages(input)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	log.Debug("Split document", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embeddings: %w: %d vectors for %d chunks",
			embedding.ErrCountMismatch, len(embeddings), len(chunks))
	}

	source := filepath.Base(pdfPath)
	records := make([]*storage.Chunk, len(chunks))
	for i, chunk := range chunks {
		records[i] = &storage.Chunk{
			ID:        uuid.New().String(),
			Index:     chunk.Index,
			Page:      chunk.Page,
			Source:    source,
			Content:   chunk.Text,
			Embedding: embeddings[i],
		}
	}

	if err := p.store.UpsertChunks(ctx, collection, records); err != nil {
		p.dropCollection(collection)
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	result := &IngestResult{
		Collection: collection,
		Pages:      len(pages),
		Chunks:     len(chunks),
		Duration:   time.Since(start),
	}
	log.Info("Ingested syllabus", "pages", result.Pages, "chunks", result.Chunks, "duration", result.Duration)
	return result, nil
}

// dropCollection is best effort and runs on a fresh context because the
// request context may be the reason the upsert failed.
func (p *Pipeline) dropCollection(collection string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.store.DeleteCollection(ctx, collection); err != nil {
		p.log.Warn("Failed to drop partial collection", "collection", collection, "error", err)
	}
}

// Package embedding turns text into vectors through an OpenAI-compatible
// embeddings endpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultModel is Ollama's build of sentence-transformers all-MiniLM-L6-v2.
	DefaultModel = "all-minilm"

	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// ErrCountMismatch means the endpoint returned a different number of vectors
// than texts sent.
var ErrCountMismatch = errors.New("embedding count mismatch")

// TextEmbedder is the contract used by ingestion and retrieval. Both sides must
// use the same implementation so query and chunk vectors share one space.
type TextEmbedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Options tune an Embedder. Zero values select the defaults.
type Options struct {
	Model       string
	BatchSize   int
	Concurrency int
}

// Embedder batches texts and sends up to Concurrency batches at once. Rate
// limit responses are retried with exponential backoff.
type Embedder struct {
	client      *Client
	model       string
	batchSize   int
	concurrency int
}

func NewEmbedder(client *Client, opts Options) *Embedder {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Embedder{
		client:      client,
		model:       opts.Model,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// GenerateEmbeddings returns one vector per text, in input order.
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := 0; i < len(texts); i += e.batchSize {
		start, end := i, min(i+e.batchSize, len(texts))
		g.Go(func() error {
			embeddings, err := e.embedBatchWithRetry(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if len(embeddings) != end-start {
				return fmt.Errorf("batch %d-%d: %w: got %d vectors", start, end, ErrCountMismatch, len(embeddings))
			}
			copy(all[start:end], embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// embedBatchWithRetry retries only HTTP 429. Other errors are permanent.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		// Data may arrive out of order; Index is authoritative.
		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			idx := int(data.Index)
			if idx < 0 || idx >= len(embeddings) {
				idx = i
			}
			embeddings[idx] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return embeddings, err
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but storage uses float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

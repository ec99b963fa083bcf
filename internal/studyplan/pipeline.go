// Package studyplan answers a heading/topic question against one syllabus
// collection: embed the heading, retrieve the closest chunks and ask the chat
// model for a study plan grounded in them.
package studyplan

import (
	"context"
	"fmt"

	"github.com/bull/syllabus-coach/internal/embedding"
	"github.com/bull/syllabus-coach/internal/logger"
	"github.com/bull/syllabus-coach/internal/storage"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 6

// Retriever is the search half of storage.VectorStore.
type Retriever interface {
	Search(ctx context.Context, collection string, embedding []float32, limit int) ([]*storage.ScoredChunk, error)
}

// Completer produces a reply to a system and user message pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Pipeline struct {
	embedder  embedding.TextEmbedder
	retriever Retriever
	generator *Generator
	completer Completer
	topK      int
	log       *logger.Logger
}

// NewPipeline wires the pipeline. When generator is non-nil its context
// truncation is applied before the completer is called; completer defaults to
// the generator itself.
func NewPipeline(embedder embedding.TextEmbedder, retriever Retriever, generator *Generator, topK int, log *logger.Logger) *Pipeline {
	p := &Pipeline{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		topK:      topK,
		log:       log,
	}
	if generator != nil {
		p.completer = generator
	}
	if p.topK <= 0 {
		p.topK = DefaultTopK
	}
	if p.log == nil {
		p.log = logger.Nop()
	}
	p.log = p.log.With("component", "studyplan")
	return p
}

// WithCompleter replaces the chat model call, mainly for tests and the CLI.
func (p *Pipeline) WithCompleter(c Completer) *Pipeline {
	p.completer = c
	return p
}

// Answer returns the model's study plan for heading, verbatim. Nothing is cached.
func (p *Pipeline) Answer(ctx context.Context, collection, heading string, minutes int) (string, error) {
	vectors, err := p.embedder.GenerateEmbeddings(ctx, []string{heading})
	if err != nil {
		return "", fmt.Errorf("embed heading: %w", err)
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("embed heading: %w", embedding.ErrCountMismatch)
	}

	hits, err := p.retriever.Search(ctx, collection, vectors[0], p.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	p.log.Debug("Retrieved context", "collection", collection, "hits", len(hits))

	contextText := FormatContext(hits)
	if p.generator != nil {
		contextText = p.generator.truncateContext(contextText)
	}

	answer, err := p.completer.Complete(ctx, SystemPrompt(minutes), HumanPrompt(heading, minutes, contextText))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return answer, nil
}

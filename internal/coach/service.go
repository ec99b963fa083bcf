// Package coach is the orchestration core: it accepts syllabus uploads, runs
// ingestion, tracks which syllabi are ready and answers study-plan questions.
package coach

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/bull/syllabus-coach/internal/indexer"
	"github.com/bull/syllabus-coach/internal/logger"
	"github.com/bull/syllabus-coach/internal/session"
)

// DefaultMinutes is the study budget used when a request does not name one.
const DefaultMinutes = 60

// CollectionPrefix is prepended to a syllabus id to name its vector collection.
const CollectionPrefix = "syllabus_"

// CollectionKey returns the vector collection that holds the syllabus.
func CollectionKey(syllabusID string) string {
	return CollectionPrefix + syllabusID
}

// DocumentStore persists raw upload bytes.
type DocumentStore interface {
	Save(id string, r io.Reader) (string, error)
	Remove(id string) error
}

// Ingestor loads a stored PDF into a vector collection.
type Ingestor interface {
	Ingest(ctx context.Context, pdfPath, collection string) (*indexer.IngestResult, error)
}

// Answerer produces a study plan from one collection.
type Answerer interface {
	Answer(ctx context.Context, collection, heading string, minutes int) (string, error)
}

// Session is a syllabus that finished ingestion and can be chatted with.
type Session struct {
	SyllabusID    string
	CollectionKey string
}

// ChatRequest asks for a study plan. Callers fill Minutes with DefaultMinutes
// when the user left it out.
type ChatRequest struct {
	SyllabusID string
	Heading    string
	Minutes    int
}

// Health is a read-only snapshot of the service.
type Health struct {
	OK           bool
	SessionCount int
	ModelName    string
}

// Options bound and describe the service. Zero limits and timeouts disable them.
type Options struct {
	ModelName            string
	IngestTimeout        time.Duration
	ChatTimeout          time.Duration
	MaxConcurrentIngests int64
	MaxConcurrentChats   int64
	KeepFailedUploads    bool
}

type Service struct {
	docs      DocumentStore
	ingestor  Ingestor
	answerer  Answerer
	registry  *session.Registry
	opts      Options
	ingestSem *semaphore.Weighted
	chatSem   *semaphore.Weighted
	log       *logger.Logger
}

func NewService(
	docs DocumentStore,
	ingestor Ingestor,
	answerer Answerer,
	registry *session.Registry,
	opts Options,
	log *logger.Logger,
) *Service {
	if registry == nil {
		registry = session.NewRegistry()
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		docs:     docs,
		ingestor: ingestor,
		answerer: answerer,
		registry: registry,
		opts:     opts,
		log:      log.With("component", "coach"),
	}
	if opts.MaxConcurrentIngests > 0 {
		s.ingestSem = semaphore.NewWeighted(opts.MaxConcurrentIngests)
	}
	if opts.MaxConcurrentChats > 0 {
		s.chatSem = semaphore.NewWeighted(opts.MaxConcurrentChats)
	}
	return s
}

// IsPDFName reports whether name ends in ".pdf", ignoring case.
func IsPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// Upload stores body under a fresh syllabus id and ingests it synchronously.
// The id is registered only if ingestion succeeds; a failed upload can never
// be chatted with and must be retried as a new upload.
func (s *Service) Upload(ctx context.Context, filename string, body io.Reader) (string, error) {
	if !IsPDFName(filename) {
		return "", newError(KindInvalidInput, ErrNotPDF)
	}

	release, err := acquire(ctx, s.ingestSem)
	if err != nil {
		return "", newError(KindIngestionFailure, err)
	}
	defer release()

	id := uuid.New().String()
	collection := CollectionKey(id)
	log := s.log.With("syllabus_id", id, "filename", filepath.Base(filename))

	path, err := s.docs.Save(id, body)
	if err != nil {
		log.Error("Failed to store upload", "error", err)
		return "", newError(KindIngestionFailure, err)
	}

	ctx, cancel := withTimeout(ctx, s.opts.IngestTimeout)
	defer cancel()

	result, err := s.ingestor.Ingest(ctx, path, collection)
	if err != nil {
		log.Error("Ingestion failed", "error", err)
		s.discardUpload(log, id)
		return "", newError(KindIngestionFailure, err)
	}

	if err := s.registry.Put(id, collection); err != nil {
		log.Error("Failed to register syllabus", "error", err)
		return "", newError(KindIngestionFailure, err)
	}

	log.Info("Syllabus ready", "collection", collection, "pages", result.Pages, "chunks", result.Chunks)
	return id, nil
}

func (s *Service) discardUpload(log *logger.Logger, id string) {
	if s.opts.KeepFailedUploads {
		return
	}
	if err := s.docs.Remove(id); err != nil {
		log.Warn("Failed to remove rejected upload", "error", err)
	}
}

// Chat answers req against its syllabus. An unknown syllabus id is reported
// before any other validation.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	collection, ok := s.registry.Get(req.SyllabusID)
	if !ok {
		return "", newError(KindUnknownSession, ErrUnknownSyllabus)
	}
	heading := strings.TrimSpace(req.Heading)
	if heading == "" {
		return "", newError(KindInvalidInput, ErrEmptyHeading)
	}
	if req.Minutes <= 0 {
		return "", newError(KindInvalidInput, ErrInvalidMinutes)
	}

	release, err := acquire(ctx, s.chatSem)
	if err != nil {
		return "", newError(KindGenerationFailure, err)
	}
	defer release()

	ctx, cancel := withTimeout(ctx, s.opts.ChatTimeout)
	defer cancel()

	start := time.Now()
	answer, err := s.answerer.Answer(ctx, collection, heading, req.Minutes)
	if err != nil {
		s.log.Error("Generation failed", "syllabus_id", req.SyllabusID, "error", err)
		return "", newError(KindGenerationFailure, err)
	}

	s.log.Info("Answered",
		"syllabus_id", req.SyllabusID,
		"minutes", req.Minutes,
		"duration", time.Since(start),
	)
	return answer, nil
}

// Lookup returns the session for a registered syllabus id.
func (s *Service) Lookup(syllabusID string) (Session, bool) {
	collection, ok := s.registry.Get(syllabusID)
	if !ok {
		return Session{}, false
	}
	return Session{SyllabusID: syllabusID, CollectionKey: collection}, true
}

func (s *Service) Health() Health {
	return Health{
		OK:           true,
		SessionCount: s.registry.Count(),
		ModelName:    s.opts.ModelName,
	}
}

func acquire(ctx context.Context, sem *semaphore.Weighted) (func(), error) {
	if sem == nil {
		return func() {}, nil
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a free slot: %w", err)
	}
	return func() { sem.Release(1) }, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Package main provides syllabusctl, a CLI for ingesting syllabi and asking
// study-plan questions without running the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bull/syllabus-coach/internal/coach"
	"github.com/bull/syllabus-coach/internal/config"
	"github.com/bull/syllabus-coach/internal/document"
	"github.com/bull/syllabus-coach/internal/embedding"
	"github.com/bull/syllabus-coach/internal/indexer"
	"github.com/bull/syllabus-coach/internal/logger"
	"github.com/bull/syllabus-coach/internal/markdown"
	"github.com/bull/syllabus-coach/internal/pdf"
	"github.com/bull/syllabus-coach/internal/splitter"
	"github.com/bull/syllabus-coach/internal/storage"
	"github.com/bull/syllabus-coach/internal/studyplan"
)

var (
	configPath string
	verbose    bool

	ingestID string

	askCollection string
	askHeading    string
	askMinutes    int
	askHTML       bool
)

var rootCmd = &cobra.Command{
	Use:   "syllabusctl",
	Short: "Syllabus study coach command line tool",
	Long: `Ingest syllabus PDFs into the vector store and ask for study plans.

Configuration is read from --config (YAML), CONFIG_FILE, .env and the
environment, the same way the server reads it.

Environment variables:
  VECTOR_BACKEND     sqlite (default) or qdrant
  DATA_DIR           base directory for uploads and vectors (default: data)
  OLLAMA_BASE_URL    OpenAI-compatible endpoint (default: http://localhost:11434/v1/)
  OLLAMA_MODEL       chat model (default: llama3.1:8b)
  OLLAMA_EMBED_MODEL embedding model (default: all-minilm)`,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Store and ingest a PDF syllabus",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask for a study plan from an ingested collection",
	RunE:  runAsk,
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List vector collections",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

var dropCmd = &cobra.Command{
	Use:   "drop <collection>",
	Short: "Delete a vector collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrop,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress")

	ingestCmd.Flags().StringVar(&ingestID, "id", "", "syllabus id to use (default: new UUID)")

	askCmd.Flags().StringVar(&askCollection, "collection", "", "collection name, e.g. syllabus_<id>")
	askCmd.Flags().StringVar(&askHeading, "heading", "", "heading or topic to plan for")
	askCmd.Flags().IntVar(&askMinutes, "minutes", coach.DefaultMinutes, "study time budget in minutes")
	askCmd.Flags().BoolVar(&askHTML, "html", false, "print the answer rendered as HTML")
	_ = askCmd.MarkFlagRequired("collection")
	_ = askCmd.MarkFlagRequired("heading")

	rootCmd.AddCommand(ingestCmd, askCmd, collectionsCmd, dropCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

// env bundles what every command needs.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	store storage.VectorStore
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.Nop()
	if verbose {
		if log, err = logger.New(cfg.App.Environment, ""); err != nil {
			return nil, err
		}
	}

	store, err := storage.Open(storage.Options{
		Backend:      cfg.Storage.VectorBackend,
		Dir:          cfg.Storage.VectorDir,
		QdrantHost:   cfg.Storage.QdrantHost,
		QdrantPort:   cfg.Storage.QdrantPort,
		QdrantAPIKey: cfg.Storage.QdrantAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return &env{cfg: cfg, log: log, store: store}, nil
}

func (e *env) close() {
	e.store.Close()
	e.log.Sync()
}

func (e *env) embedder() (*embedding.Client, *embedding.Embedder, error) {
	client, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL: e.cfg.AI.BaseURL,
		APIKey:  e.cfg.AI.APIKey,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, embedding.NewEmbedder(client, embedding.Options{
		Model:       e.cfg.AI.EmbeddingModel,
		BatchSize:   e.cfg.AI.EmbeddingBatchSize,
		Concurrency: e.cfg.AI.EmbeddingConcurrency,
	}), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !coach.IsPDFName(path) {
		return coach.ErrNotPDF
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()

	id := ingestID
	if id == "" {
		id = uuid.New().String()
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	docs, err := document.NewStore(e.cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	stored, err := docs.Save(id, f)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", path, err)
	}

	_, embedder, err := e.embedder()
	if err != nil {
		return err
	}
	pipeline := indexer.NewPipeline(
		pdf.NewExtractor(e.log),
		splitter.NewRecursive(e.cfg.RAG.ChunkSize, e.cfg.RAG.ChunkOverlap),
		embedder,
		e.store,
		e.log,
	)

	fmt.Printf("Ingesting %s...\n", filepath.Base(path))
	result, err := pipeline.Ingest(ctx, stored, coach.CollectionKey(id))
	if err != nil {
		if !e.cfg.Limits.KeepFailedUploads {
			_ = docs.Remove(id)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Syllabus ID: %s\n", id)
	fmt.Printf("  Collection:  %s\n", result.Collection)
	fmt.Printf("  Pages:       %d\n", result.Pages)
	fmt.Printf("  Chunks:      %d\n", result.Chunks)
	fmt.Printf("  Duration:    %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askMinutes <= 0 {
		return coach.ErrInvalidMinutes
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()

	client, embedder, err := e.embedder()
	if err != nil {
		return err
	}
	generator := studyplan.NewGenerator(client.Client(), e.cfg.AI.Model, e.log)
	pipeline := studyplan.NewPipeline(embedder, e.store, generator, e.cfg.RAG.TopK, e.log)

	answer, err := pipeline.Answer(ctx, askCollection, askHeading, askMinutes)
	if err != nil {
		return err
	}

	if askHTML {
		rendered, err := markdown.NewRenderer().Render(answer)
		if err != nil {
			return err
		}
		fmt.Println(rendered.HTML)
		return nil
	}
	fmt.Println(answer)
	return nil
}

func runCollections(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	names, err := e.store.ListCollections(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No collections.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runDrop(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.store.DeleteCollection(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Dropped %s\n", args[0])
	return nil
}

// Package main runs the syllabus study coach HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bull/syllabus-coach/internal/api"
	"github.com/bull/syllabus-coach/internal/coach"
	"github.com/bull/syllabus-coach/internal/config"
	"github.com/bull/syllabus-coach/internal/document"
	"github.com/bull/syllabus-coach/internal/embedding"
	"github.com/bull/syllabus-coach/internal/indexer"
	"github.com/bull/syllabus-coach/internal/logger"
	"github.com/bull/syllabus-coach/internal/markdown"
	mcpserver "github.com/bull/syllabus-coach/internal/mcp"
	"github.com/bull/syllabus-coach/internal/pdf"
	"github.com/bull/syllabus-coach/internal/session"
	"github.com/bull/syllabus-coach/internal/splitter"
	"github.com/bull/syllabus-coach/internal/storage"
	"github.com/bull/syllabus-coach/internal/studyplan"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Environment, cfg.App.LogFilePath)
	if err != nil {
		os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Opening vector store", "backend", cfg.Storage.VectorBackend)
	store, err := storage.Open(storage.Options{
		Backend:      cfg.Storage.VectorBackend,
		Dir:          cfg.Storage.VectorDir,
		QdrantHost:   cfg.Storage.QdrantHost,
		QdrantPort:   cfg.Storage.QdrantPort,
		QdrantAPIKey: cfg.Storage.QdrantAPIKey,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := document.NewStore(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	client, err := embedding.NewClient(embedding.ClientConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
	})
	if err != nil {
		return err
	}
	embedder := embedding.NewEmbedder(client, embedding.Options{
		Model:       cfg.AI.EmbeddingModel,
		BatchSize:   cfg.AI.EmbeddingBatchSize,
		Concurrency: cfg.AI.EmbeddingConcurrency,
	})

	ingest := indexer.NewPipeline(
		pdf.NewExtractor(log),
		splitter.NewRecursive(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder,
		store,
		log,
	)
	generator := studyplan.NewGenerator(client.Client(), cfg.AI.Model, log)
	answer := studyplan.NewPipeline(embedder, store, generator, cfg.RAG.TopK, log)

	svc := coach.NewService(docs, ingest, answer, session.NewRegistry(), coach.Options{
		ModelName:            cfg.AI.Model,
		IngestTimeout:        cfg.Limits.IngestTimeout,
		ChatTimeout:          cfg.Limits.ChatTimeout,
		MaxConcurrentIngests: cfg.Limits.MaxConcurrentIngests,
		MaxConcurrentChats:   cfg.Limits.MaxConcurrentChats,
		KeepFailedUploads:    cfg.Limits.KeepFailedUploads,
	}, log)

	renderer := markdown.NewRenderer()
	mcpSrv := mcpserver.NewServer(&mcpserver.Config{
		Coach:       svc,
		Collections: store,
		Renderer:    renderer,
	})

	router := api.NewRouter(api.RouterConfig{
		Handler:        api.NewHandler(svc, renderer, store, cfg.App.MaxUploadBytes),
		MCP:            mcpserver.NewHTTPHandler(mcpSrv, &mcpserver.HTTPHandlerOptions{Stateless: true}),
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			"addr", srv.Addr,
			"model", cfg.AI.Model,
			"embedding_model", cfg.AI.EmbeddingModel,
			"upload_dir", cfg.Storage.UploadDir,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

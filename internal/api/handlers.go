package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bull/syllabus-coach/internal/coach"
	"github.com/bull/syllabus-coach/internal/markdown"
)

// Coach is the service behind the HTTP surface.
type Coach interface {
	Upload(ctx context.Context, filename string, body io.Reader) (string, error)
	Chat(ctx context.Context, req coach.ChatRequest) (string, error)
	Health() coach.Health
}

// HealthChecker probes the vector store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Answer formats accepted by POST /chat.
const (
	FormatText = "text"
	FormatHTML = "html"
)

type UploadResponse struct {
	SyllabusID string `json:"syllabus_id"`
}

type ChatRequest struct {
	SyllabusID string `json:"syllabus_id"`
	Heading    string `json:"heading"`
	Minutes    *int   `json:"minutes"`
	Format     string `json:"format"`
}

type ChatResponse struct {
	Answer     string                 `json:"answer"`
	AnswerHTML string                 `json:"answer_html,omitempty"`
	Outline    []markdown.OutlineItem `json:"outline,omitempty"`
}

type HealthResponse struct {
	OK            bool   `json:"ok"`
	SyllabiLoaded int    `json:"syllabi_loaded"`
	OllamaModel   string `json:"ollama_model"`
}

// ReadyResponse is returned by the readiness probe.
type ReadyResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	Timestamp   string `json:"timestamp"`
}

type Handler struct {
	coach          Coach
	renderer       *markdown.Renderer
	store          HealthChecker
	maxUploadBytes int64
}

func NewHandler(c Coach, renderer *markdown.Renderer, store HealthChecker, maxUploadBytes int64) *Handler {
	if renderer == nil {
		renderer = markdown.NewRenderer()
	}
	return &Handler{coach: c, renderer: renderer, store: store, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart form with the PDF in field "file".
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			respondTooLarge(c, h.maxUploadBytes)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondTooLarge(c, h.maxUploadBytes)
		case errors.Is(err, http.ErrMissingFile):
			respondInvalid(c, errMissingFile)
		default:
			respondInvalid(c, fmt.Errorf("invalid multipart form: %w", err))
		}
		return
	}

	// Checked here as well so a bad name is rejected before the part is opened.
	if !coach.IsPDFName(fh.Filename) {
		respondServiceError(c, &coach.Error{Kind: coach.KindInvalidInput, Err: coach.ErrNotPDF})
		return
	}

	file, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, coach.KindIngestionFailure.String(), err)
		return
	}
	defer file.Close()

	id, err := h.coach.Upload(c.Request.Context(), fh.Filename, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, UploadResponse{SyllabusID: id})
}

func respondTooLarge(c *gin.Context, limit int64) {
	respondError(c, http.StatusRequestEntityTooLarge, coach.KindInvalidInput.String(),
		fmt.Errorf("upload exceeds the %d byte limit", limit))
}

// Chat answers a study-plan question. minutes defaults to 60 when omitted.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	minutes := coach.DefaultMinutes
	if req.Minutes != nil {
		minutes = *req.Minutes
	}

	answer, err := h.coach.Chat(c.Request.Context(), coach.ChatRequest{
		SyllabusID: req.SyllabusID,
		Heading:    req.Heading,
		Minutes:    minutes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := ChatResponse{Answer: answer}
	switch req.Format {
	case "", FormatText:
	case FormatHTML:
		rendered, err := h.renderer.Render(answer)
		if err != nil {
			respondError(c, http.StatusInternalServerError, coach.KindGenerationFailure.String(), err)
			return
		}
		resp.AnswerHTML = rendered.HTML
		resp.Outline = rendered.Outline
	default:
		respondInvalid(c, fmt.Errorf("unsupported format %q", req.Format))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Health(c *gin.Context) {
	health := h.coach.Health()
	c.JSON(http.StatusOK, HealthResponse{
		OK:            health.OK,
		SyllabiLoaded: health.SessionCount,
		OllamaModel:   health.ModelName,
	})
}

// Ready checks vector store connectivity with a 3 second budget.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := ReadyResponse{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if h.store == nil {
		resp.Status, resp.VectorStore = "unhealthy", "not configured"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	if err := h.store.Health(ctx); err != nil {
		_ = c.Error(err)
		resp.Status, resp.VectorStore = "unhealthy", "disconnected"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status, resp.VectorStore = "healthy", "connected"
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Backend is running."})
}

func (h *Handler) Favicon(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

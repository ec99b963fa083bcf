package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/syllabus-coach/internal/coach"
	"github.com/bull/syllabus-coach/internal/document"
	"github.com/bull/syllabus-coach/internal/indexer"
	"github.com/bull/syllabus-coach/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIngestor struct{ err error }

func (s *stubIngestor) Ingest(ctx context.Context, pdfPath, collection string) (*indexer.IngestResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &indexer.IngestResult{Collection: collection, Pages: 1, Chunks: 2}, nil
}

type stubAnswerer struct {
	answer  string
	err     error
	minutes int
}

func (s *stubAnswerer) Answer(ctx context.Context, collection, heading string, minutes int) (string, error) {
	s.minutes = minutes
	return s.answer, s.err
}

type stubHealth struct{ err error }

func (s stubHealth) Health(ctx context.Context) error { return s.err }

type testServer struct {
	router   *gin.Engine
	ingestor *stubIngestor
	answerer *stubAnswerer
}

func newTestServer(t *testing.T, maxUpload int64, storeErr error) *testServer {
	t.Helper()
	docs, err := document.NewStore(t.TempDir())
	require.NoError(t, err)

	ts := &testServer{
		ingestor: &stubIngestor{},
		answerer: &stubAnswerer{answer: "## 1) Core concepts\n- Trees"},
	}
	svc := coach.NewService(docs, ts.ingestor, ts.answerer, session.NewRegistry(),
		coach.Options{ModelName: "llama3.1:8b"}, nil)

	ts.router = NewRouter(RouterConfig{
		Handler:        NewHandler(svc, nil, stubHealth{err: storeErr}, maxUpload),
		AllowedOrigins: []string{"*"},
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func chatRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) upload(t *testing.T) string {
	t.Helper()
	w := ts.do(uploadRequest(t, "file", "syllabus.pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[UploadResponse](t, w).SyllabusID
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"syllabi_loaded":0,"ollama_model":"llama3.1:8b"}`, w.Body.String())

	ts.upload(t)
	w = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, 1, decode[HealthResponse](t, w).SyllabiLoaded)
}

func TestReady(t *testing.T) {
	w := newTestServer(t, 0, nil).do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ReadyResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.VectorStore)

	w = newTestServer(t, 0, errors.New("down")).do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "disconnected", decode[ReadyResponse](t, w).VectorStore)
}

func TestUpload_Success(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	id := ts.upload(t)
	assert.Len(t, id, 36)
}

func TestUpload_WrongExtension(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	w := ts.do(uploadRequest(t, "file", "syllabus.docx", []byte("doc")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Please upload a PDF syllabus.", resp.Detail)
	assert.Equal(t, "invalid_input", resp.Kind)
}

func TestUpload_MissingFile(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	w := ts.do(uploadRequest(t, "document", "syllabus.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Detail, `"file"`)
}

func TestUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, 128, nil)

	w := ts.do(uploadRequest(t, "file", "big.pdf", bytes.Repeat([]byte("x"), 4096)))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Detail, "128 byte limit")
}

func TestUpload_IngestionFailure(t *testing.T) {
	ts := newTestServer(t, 0, nil)
	ts.ingestor.err = errors.New("No text extracted from the PDF.")

	w := ts.do(uploadRequest(t, "file", "scan.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "No text extracted from the PDF.", resp.Detail)
	assert.Equal(t, "ingestion_failure", resp.Kind)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, decode[HealthResponse](t, w).SyllabiLoaded)
}

func TestChat_Success(t *testing.T) {
	ts := newTestServer(t, 0, nil)
	id := ts.upload(t)

	w := ts.do(chatRequest(`{"syllabus_id":"` + id + `","heading":"Trees","minutes":30}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"answer":"## 1) Core concepts\n- Trees"}`, w.Body.String())
	assert.Equal(t, 30, ts.answerer.minutes)
}

func TestChat_DefaultMinutes(t *testing.T) {
	ts := newTestServer(t, 0, nil)
	id := ts.upload(t)

	w := ts.do(chatRequest(`{"syllabus_id":"` + id + `","heading":"Trees"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60, ts.answerer.minutes)
}

func TestChat_HTMLFormat(t *testing.T) {
	ts := newTestServer(t, 0, nil)
	id := ts.upload(t)

	w := ts.do(chatRequest(`{"syllabus_id":"` + id + `","heading":"Trees","format":"html"}`))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ChatResponse](t, w)
	assert.Equal(t, "## 1) Core concepts\n- Trees", resp.Answer)
	assert.Contains(t, resp.AnswerHTML, "<li>Trees</li>")
	require.Len(t, resp.Outline, 1)
	assert.Equal(t, "1) Core concepts", resp.Outline[0].Title)
}

func TestChat_UnknownSyllabus(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	for _, body := range []string{
		`{"syllabus_id":"missing","heading":"Trees","minutes":30}`,
		`{"syllabus_id":"missing","heading":"","minutes":-1}`,
		`{"heading":"Trees"}`,
	} {
		w := ts.do(chatRequest(body))
		require.Equal(t, http.StatusNotFound, w.Code, body)
		resp := decode[ErrorResponse](t, w)
		assert.Equal(t, "Unknown syllabus_id. Upload first.", resp.Detail)
		assert.Equal(t, "unknown_session", resp.Kind)
	}
}

func TestChat_BadRequests(t *testing.T) {
	ts := newTestServer(t, 0, nil)
	id := ts.upload(t)

	for _, body := range []string{
		`not json`,
		`{"syllabus_id":"` + id + `","heading":"Trees","minutes":0}`,
		`{"syllabus_id":"` + id + `","heading":"Trees","minutes":"many"}`,
		`{"syllabus_id":"` + id + `","heading":"   "}`,
		`{"syllabus_id":"` + id + `","heading":"Trees","format":"pdf"}`,
	} {
		w := ts.do(chatRequest(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "invalid_input", decode[ErrorResponse](t, w).Kind, body)
	}
}

func TestChat_GenerationFailure(t *testing.T) {
	ts := newTestServer(t, 0, nil)
	id := ts.upload(t)
	ts.answerer.err = errors.New("connection refused")

	w := ts.do(chatRequest(`{"syllabus_id":"` + id + `","heading":"Trees"}`))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "connection refused", resp.Detail)
	assert.Equal(t, "generation_failure", resp.Kind)
}

func TestRootAndFavicon(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Backend is running."}`, w.Body.String())

	w = ts.do(httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, 0, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	w := ts.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSRestrictedOrigins(t *testing.T) {
	r := NewRouter(RouterConfig{
		Handler:        NewHandler(nil, nil, nil, 0),
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNoRoute(t *testing.T) {
	w := newTestServer(t, 0, nil).do(httptest.NewRequest(http.MethodGet, "/docs", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", decode[ErrorResponse](t, w).Detail)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OLLAMA_MODEL", "")
	t.Setenv("DATA_DIR", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "llama3.1:8b", cfg.AI.Model)
	assert.Equal(t, BackendSQLite, cfg.Storage.VectorBackend)
	assert.Equal(t, filepath.Join("data", "uploads"), cfg.Storage.UploadDir)
	assert.Equal(t, filepath.Join("data", "vectors"), cfg.Storage.VectorDir)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 6, cfg.RAG.TopK)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OLLAMA_MODEL", "qwen2.5:7b")
	t.Setenv("DATA_DIR", "/srv/coach")
	t.Setenv("CHAT_TIMEOUT", "45s")
	t.Setenv("KEEP_FAILED_UPLOADS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, http://127.0.0.1:5173")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "qwen2.5:7b", cfg.AI.Model)
	assert.Equal(t, filepath.Join("/srv/coach", "uploads"), cfg.Storage.UploadDir)
	assert.Equal(t, 45*time.Second, cfg.Limits.ChatTimeout)
	assert.True(t, cfg.Limits.KeepFailedUploads)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.AllowedOrigins())
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  vector_backend: qdrant
  qdrant_port: 7000
rag:
  top_k: 3
limits:
  ingest_timeout: 2m
ai:
  model: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("OLLAMA_MODEL", "from-env")
	t.Setenv("DATA_DIR", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendQdrant, cfg.Storage.VectorBackend)
	assert.Equal(t, 7000, cfg.Storage.QdrantPort)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 2*time.Minute, cfg.Limits.IngestTimeout)
	assert.Equal(t, "from-env", cfg.AI.Model, "env must win over the file")
	// Untouched values keep their defaults.
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage.VectorBackend = "chroma"
	cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown vector backend "chroma"`)
	assert.Contains(t, err.Error(), "chunk overlap")
}

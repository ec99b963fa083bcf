// Package config loads server and CLI configuration from an optional YAML file,
// a .env file and environment variables, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Vector store backends.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config is the root configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Storage StorageConfig `yaml:"storage"`
	AI      AIConfig      `yaml:"ai"`
	RAG     RAGConfig     `yaml:"rag"`
	Limits  LimitsConfig  `yaml:"limits"`
}

type AppConfig struct {
	Port               string `yaml:"port"`
	Environment        string `yaml:"environment"`
	LogFilePath        string `yaml:"log_file_path"`
	CorsAllowedOrigins string `yaml:"cors_allowed_origins"`
	MaxUploadBytes     int64  `yaml:"max_upload_bytes"`
}

type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	UploadDir     string `yaml:"upload_dir"`
	VectorDir     string `yaml:"vector_dir"`
	VectorBackend string `yaml:"vector_backend"`
	QdrantHost    string `yaml:"qdrant_host"`
	QdrantPort    int    `yaml:"qdrant_port"`
	QdrantAPIKey  string `yaml:"qdrant_api_key"`
}

// AIConfig points both the embedder and the chat model at an OpenAI-compatible
// endpoint. Ollama serves one under /v1.
type AIConfig struct {
	BaseURL              string `yaml:"base_url"`
	APIKey               string `yaml:"api_key"`
	Model                string `yaml:"model"`
	EmbeddingModel       string `yaml:"embedding_model"`
	EmbeddingBatchSize   int    `yaml:"embedding_batch_size"`
	EmbeddingConcurrency int    `yaml:"embedding_concurrency"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// LimitsConfig bounds request handling. Zero values disable the limit.
type LimitsConfig struct {
	IngestTimeout        time.Duration `yaml:"ingest_timeout"`
	ChatTimeout          time.Duration `yaml:"chat_timeout"`
	MaxConcurrentIngests int64         `yaml:"max_concurrent_ingests"`
	MaxConcurrentChats   int64         `yaml:"max_concurrent_chats"`
	KeepFailedUploads    bool          `yaml:"keep_failed_uploads"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:               "8000",
			Environment:        "development",
			LogFilePath:        filepath.Join("data", "logs", "server.log"),
			CorsAllowedOrigins: "*",
			MaxUploadBytes:     32 << 20,
		},
		Storage: StorageConfig{
			DataDir:       "data",
			VectorBackend: BackendSQLite,
			QdrantHost:    "localhost",
			QdrantPort:    6334,
		},
		AI: AIConfig{
			BaseURL:              "http://localhost:11434/v1/",
			APIKey:               "ollama",
			Model:                "llama3.1:8b",
			EmbeddingModel:       "all-minilm",
			EmbeddingBatchSize:   64,
			EmbeddingConcurrency: 4,
		},
		RAG: RAGConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         6,
		},
		Limits: LimitsConfig{
			IngestTimeout:        10 * time.Minute,
			ChatTimeout:          5 * time.Minute,
			MaxConcurrentIngests: 4,
			MaxConcurrentChats:   8,
		},
	}
}

// Load builds the configuration. path may be empty; when set, the YAML file must
// exist. CONFIG_FILE is consulted when path is empty.
func Load(path string) (*Config, error) {
	// .env is optional in production
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.VectorBackend {
	case BackendSQLite, BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Storage.VectorBackend))
	}
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be in [0, chunk size)", c.RAG.ChunkOverlap))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, errors.New("top k must be positive"))
	}
	if c.AI.Model == "" {
		errs = append(errs, errors.New("model name is required"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.App.Environment) {
	case "prod", "production":
		return true
	}
	return false
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.App.CorsAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func applyEnv(cfg *Config) {
	cfg.App.Port = getEnv("PORT", cfg.App.Port)
	cfg.App.Environment = getEnv("APP_ENV", cfg.App.Environment)
	cfg.App.LogFilePath = getEnv("LOG_FILE_PATH", cfg.App.LogFilePath)
	cfg.App.CorsAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.App.CorsAllowedOrigins)
	cfg.App.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", cfg.App.MaxUploadBytes)

	cfg.Storage.DataDir = getEnv("DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.UploadDir = getEnv("UPLOAD_DIR", cfg.Storage.UploadDir)
	cfg.Storage.VectorDir = getEnv("VECTOR_DIR", cfg.Storage.VectorDir)
	cfg.Storage.VectorBackend = strings.ToLower(getEnv("VECTOR_BACKEND", cfg.Storage.VectorBackend))
	cfg.Storage.QdrantHost = getEnv("QDRANT_HOST", cfg.Storage.QdrantHost)
	cfg.Storage.QdrantPort = getEnvInt("QDRANT_PORT", cfg.Storage.QdrantPort)
	cfg.Storage.QdrantAPIKey = getEnv("QDRANT_API_KEY", cfg.Storage.QdrantAPIKey)

	cfg.AI.BaseURL = getEnv("OLLAMA_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.APIKey = getEnv("LLM_API_KEY", cfg.AI.APIKey)
	cfg.AI.Model = getEnv("OLLAMA_MODEL", cfg.AI.Model)
	cfg.AI.EmbeddingModel = getEnv("OLLAMA_EMBED_MODEL", cfg.AI.EmbeddingModel)
	cfg.AI.EmbeddingBatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", cfg.AI.EmbeddingBatchSize)
	cfg.AI.EmbeddingConcurrency = getEnvInt("EMBEDDING_CONCURRENCY", cfg.AI.EmbeddingConcurrency)

	cfg.RAG.ChunkSize = getEnvInt("CHUNK_SIZE", cfg.RAG.ChunkSize)
	cfg.RAG.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)
	cfg.RAG.TopK = getEnvInt("RAG_TOP_K", cfg.RAG.TopK)

	cfg.Limits.IngestTimeout = getEnvDuration("INGEST_TIMEOUT", cfg.Limits.IngestTimeout)
	cfg.Limits.ChatTimeout = getEnvDuration("CHAT_TIMEOUT", cfg.Limits.ChatTimeout)
	cfg.Limits.MaxConcurrentIngests = getEnvInt64("MAX_CONCURRENT_INGESTS", cfg.Limits.MaxConcurrentIngests)
	cfg.Limits.MaxConcurrentChats = getEnvInt64("MAX_CONCURRENT_CHATS", cfg.Limits.MaxConcurrentChats)
	cfg.Limits.KeepFailedUploads = getEnvBool("KEEP_FAILED_UPLOADS", cfg.Limits.KeepFailedUploads)
}

// applyDefaults derives the directories that hang off DataDir.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = filepath.Join(cfg.Storage.DataDir, "uploads")
	}
	if cfg.Storage.VectorDir == "" {
		cfg.Storage.VectorDir = filepath.Join(cfg.Storage.DataDir, "vectors")
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Batch I/O
	InputDir   string
	OutputDir  string
	InputFile  string
	OutputFile string

	// Embedding backend
	EmbedProvider string
	EmbedBaseURL  string
	EmbedModel    string
	EmbedAPIKey   string
	EmbedCacheDir string

	// Pairwise reranking backend
	RerankProvider string
	RerankBaseURL  string
	RerankModel    string

	// Ranking
	TopK             int
	CandidatesPerDoc int
	MinBodyLength    int

	// Parallel PDF loading
	LoadWorkers int

	// HTTP server
	Port           string
	DocrankAPIKey  string
	MaxUploadBytes int64

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Job state
	JobTTL time.Duration

	LogLevel slog.Level
}

// LoadDotEnv reads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		InputDir:   envOr("DOCRANK_INPUT_DIR", "input"),
		OutputDir:  envOr("DOCRANK_OUTPUT_DIR", "output"),
		InputFile:  envOr("DOCRANK_INPUT_FILE", "challenge1b_input.json"),
		OutputFile: envOr("DOCRANK_OUTPUT_FILE", "challenge1b_output.json"),

		EmbedProvider: envOr("EMBED_PROVIDER", "tei"),
		EmbedBaseURL:  envOr("EMBED_BASE_URL", "http://localhost:8081"),
		EmbedModel:    envOr("EMBED_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		EmbedAPIKey:   os.Getenv("EMBED_API_KEY"),
		EmbedCacheDir: envOr("EMBED_CACHE_DIR", filepath.Join(".", "local_cache")),

		RerankProvider: envOr("RERANK_PROVIDER", "lexical"),
		RerankBaseURL:  os.Getenv("RERANK_BASE_URL"),
		RerankModel:    envOr("RERANK_MODEL", "cross-encoder/ms-marco-MiniLM-L-6-v2"),

		TopK:             envInt("TOP_K", 5),
		CandidatesPerDoc: envInt("CANDIDATES_PER_DOC", 10),
		MinBodyLength:    envInt("MIN_BODY_LENGTH", 80),

		LoadWorkers: envInt("LOAD_WORKERS", 4),

		Port:           envOr("PORT", "8090"),
		DocrankAPIKey:  os.Getenv("DOCRANK_API_KEY"),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 50*1024*1024)),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		LogLevel: envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.CandidatesPerDoc <= 0 {
		cfg.CandidatesPerDoc = 10
	}
	if cfg.MinBodyLength < 0 {
		cfg.MinBodyLength = 80
	}
	if cfg.LoadWorkers <= 0 {
		cfg.LoadWorkers = 4
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 * 1024 * 1024
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// InputPath is the full path of the run descriptor.
func (c Config) InputPath() string { return filepath.Join(c.InputDir, c.InputFile) }

// OutputPath is the full path of the result document.
func (c Config) OutputPath() string { return filepath.Join(c.OutputDir, c.OutputFile) }

// Validate checks what a batch run needs.
func (c Config) Validate() error {
	switch c.EmbedProvider {
	case "tei", "openai":
		if c.EmbedBaseURL == "" {
			return fmt.Errorf("EMBED_BASE_URL is required for provider %q", c.EmbedProvider)
		}
	case "fastembed":
	default:
		return fmt.Errorf("EMBED_PROVIDER must be tei, openai or fastembed, got %q", c.EmbedProvider)
	}
	switch c.RerankProvider {
	case "tei":
		if c.RerankBaseURL == "" {
			return fmt.Errorf("RERANK_BASE_URL is required for provider %q", c.RerankProvider)
		}
	case "lexical":
	default:
		return fmt.Errorf("RERANK_PROVIDER must be tei or lexical, got %q", c.RerankProvider)
	}
	if c.InputDir == "" || c.OutputDir == "" {
		return fmt.Errorf("input and output directories are required")
	}
	return nil
}

// ValidateServe additionally requires the API key guarding /api.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DocrankAPIKey == "" {
		return fmt.Errorf("DOCRANK_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	VectorSize         int

	DBPath string

	VectorBackend    string // "qdrant" or "memory"
	QdrantURL        string
	QdrantCollection string

	MaxChunkSize  int
	ChunkOverlap  int
	RetrievalTopK int
	// RetrievalDocCap limits chunks per document in retrieval results.
	// 0 means unlimited.
	RetrievalDocCap int
	ContextBudget   int

	OCRLanguage string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project root .env (where go.mod lives)
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/carevault.db"),
		VectorBackend:      getEnv("VECTOR_BACKEND", "qdrant"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		OCRLanguage:        getEnv("OCR_LANGUAGE", "eng"),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "carevault.documents"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "carevault-indexer"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// EMBEDDING_VECTOR_SIZE must match the output size of the pinned embedding
	// model. Index and query paths share this value; if the model changes, the
	// vector collection must be rebuilt.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.VectorSize = vectorSize

	if cfg.MaxChunkSize, err = getEnvInt("MAX_CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 100); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}
	if cfg.RetrievalTopK, err = getEnvInt("RETRIEVAL_TOP_K", 5); err != nil {
		return nil, err
	}
	if cfg.RetrievalDocCap, err = getEnvInt("RETRIEVAL_DOC_CAP", 0); err != nil {
		return nil, err
	}
	if cfg.ContextBudget, err = getEnvInt("CONTEXT_BUDGET", 6000); err != nil {
		return nil, err
	}

	if cfg.VectorBackend != "qdrant" && cfg.VectorBackend != "memory" {
		return nil, fmt.Errorf("VECTOR_BACKEND must be \"qdrant\" or \"memory\", got %q", cfg.VectorBackend)
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return n, nil
}

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
// It is constructed once at startup and passed to component constructors;
// nothing mutates it afterwards.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDimension int
	AsymmetricEmbed    bool
	ChunkSize          int
	ChunkOverlap       int
	DBPath             string
	UploadDir          string
	QdrantURL          string
	QdrantCollection   string
	LexicalWeight      float64
	VectorWeight       float64
	StoreTimeoutSecs   int
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up from the working directory to find a project-root .env
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
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "all-mpnet-base-v2"),
		DBPath:             getEnv("DB_PATH", "./data/purple-ai.db"),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploaded_files"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// EMBEDDING_DIMENSION must match the output vector size of the embedding
	// model (all-mpnet-base-v2 -> 768, all-MiniLM-L6-v2 -> 384). The Qdrant
	// collection is created with this size; changing it requires recreating
	// the collection.
	dimStr := getEnv("EMBEDDING_DIMENSION", "")
	if dimStr == "" {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION is required")
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be a valid integer: %w", err)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be greater than 0")
	}
	cfg.EmbeddingDimension = dim

	cfg.AsymmetricEmbed, err = getEnvBool("ASYMMETRIC_EMBEDDING", false)
	if err != nil {
		return nil, err
	}

	cfg.ChunkSize, err = getEnvInt("TEXT_CHUNK_SIZE", 300)
	if err != nil {
		return nil, err
	}
	cfg.ChunkOverlap, err = getEnvInt("TEXT_CHUNK_OVERLAP", 100)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("TEXT_CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("TEXT_CHUNK_OVERLAP must be at least 0 and smaller than TEXT_CHUNK_SIZE")
	}

	cfg.LexicalWeight, err = getEnvFloat("HYBRID_LEXICAL_WEIGHT", 0.3)
	if err != nil {
		return nil, err
	}
	cfg.VectorWeight, err = getEnvFloat("HYBRID_VECTOR_WEIGHT", 0.7)
	if err != nil {
		return nil, err
	}
	if cfg.LexicalWeight < 0 || cfg.VectorWeight < 0 {
		return nil, fmt.Errorf("hybrid search weights must not be negative")
	}
	if cfg.LexicalWeight == 0 && cfg.VectorWeight == 0 {
		return nil, fmt.Errorf("at least one hybrid search weight must be greater than 0")
	}

	cfg.StoreTimeoutSecs, err = getEnvInt("STORE_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	if cfg.StoreTimeoutSecs <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT_SECONDS must be greater than 0")
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\"")
	}

	// Create data and upload directories if they don't exist
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
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
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}
}

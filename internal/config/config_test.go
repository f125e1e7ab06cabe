package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var configEnvVars = []string{
	"EMBEDDING_DIMENSION", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
	"ASYMMETRIC_EMBEDDING", "TEXT_CHUNK_SIZE", "TEXT_CHUNK_OVERLAP",
	"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
	"DB_PATH", "UPLOAD_DIR", "QDRANT_URL", "QDRANT_COLLECTION",
	"HYBRID_LEXICAL_WEIGHT", "HYBRID_VECTOR_WEIGHT",
	"STORE_TIMEOUT_SECONDS", "API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalEnv := make(map[string]string)
	for _, key := range configEnvVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "valid config with required dimension",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.EmbeddingDimension == 768 &&
					cfg.ChunkSize == 300 &&
					cfg.ChunkOverlap == 100 &&
					cfg.LexicalWeight == 0.3 &&
					cfg.VectorWeight == 0.7 &&
					!cfg.AsymmetricEmbed
			},
		},
		{
			name:     "missing EMBEDDING_DIMENSION",
			setupEnv: func(t *testing.T) {},
			wantErr:  true,
		},
		{
			name: "invalid EMBEDDING_DIMENSION",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSION", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero EMBEDDING_DIMENSION",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSION", "0")
			},
			wantErr: true,
		},
		{
			name: "negative EMBEDDING_DIMENSION",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSION", "-1")
			},
			wantErr: true,
		},
		{
			name: "overlap equal to chunk size rejected",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("TEXT_CHUNK_SIZE", "100")
				setEnv("TEXT_CHUNK_OVERLAP", "100")
			},
			wantErr: true,
		},
		{
			name: "negative overlap rejected",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("TEXT_CHUNK_OVERLAP", "-5")
			},
			wantErr: true,
		},
		{
			name: "zero chunk size rejected",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("TEXT_CHUNK_SIZE", "0")
			},
			wantErr: true,
		},
		{
			name: "both weights zero rejected",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("HYBRID_LEXICAL_WEIGHT", "0")
				setEnv("HYBRID_VECTOR_WEIGHT", "0")
			},
			wantErr: true,
		},
		{
			name: "negative weight rejected",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("HYBRID_LEXICAL_WEIGHT", "-0.3")
			},
			wantErr: true,
		},
		{
			name: "default values for optional fields",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "384")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://localhost:8080" &&
					cfg.LLMModelName == "Llama-3.1-8B-Instruct" &&
					cfg.LLMAPIKey == "dummy-key" &&
					cfg.EmbeddingBaseURL == "http://localhost:8081" &&
					cfg.EmbeddingModelName == "all-mpnet-base-v2" &&
					cfg.QdrantURL == "http://localhost:6333" &&
					cfg.QdrantCollection == "documents" &&
					cfg.APIPort == "9000" &&
					cfg.StoreTimeoutSecs == 30 &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text"
			},
		},
		{
			name: "custom optional values",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "custom", "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("LLM_BASE_URL", "http://custom:9090")
				setEnv("LLM_MODEL", "custom-model")
				setEnv("ASYMMETRIC_EMBEDDING", "true")
				setEnv("TEXT_CHUNK_SIZE", "500")
				setEnv("TEXT_CHUNK_OVERLAP", "50")
				setEnv("HYBRID_LEXICAL_WEIGHT", "0.5")
				setEnv("HYBRID_VECTOR_WEIGHT", "0.5")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "json")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://custom:9090" &&
					cfg.LLMModelName == "custom-model" &&
					cfg.AsymmetricEmbed &&
					cfg.ChunkSize == 500 &&
					cfg.ChunkOverlap == 50 &&
					cfg.LexicalWeight == 0.5 &&
					cfg.VectorWeight == 0.5 &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json"
			},
		},
		{
			name: "invalid log level rejected",
			setupEnv: func(t *testing.T) {
				tmpDir := t.TempDir()
				setEnv("EMBEDDING_DIMENSION", "768")
				setEnv("DB_PATH", filepath.Join(tmpDir, "db.db"))
				setEnv("UPLOAD_DIR", filepath.Join(tmpDir, "uploads"))
				setEnv("LOG_LEVEL", "verbose")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir)
			defer func() {
				_ = os.Chdir(originalWd)
			}()

			for _, key := range configEnvVars {
				unsetEnv(key)
			}

			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed")
			}
		})
	}
}

func TestLoad_CreatesDirectories(t *testing.T) {
	originalEnv := make(map[string]string)
	for _, key := range configEnvVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "data", "db.db")
	uploadDir := filepath.Join(tmpDir, "uploads")

	setEnv("EMBEDDING_DIMENSION", "768")
	setEnv("DB_PATH", dbPath)
	setEnv("UPLOAD_DIR", uploadDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Errorf("Load() should create data directory: %v", err)
	}
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		t.Errorf("Load() should create upload directory: %v", err)
	}

	if cfg.DBPath != dbPath {
		t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, dbPath)
	}
}

func TestGetEnv(t *testing.T) {
	originalValue := os.Getenv("TEST_ENV_VAR")
	defer func() {
		if originalValue != "" {
			setEnv("TEST_ENV_VAR", originalValue)
		} else {
			unsetEnv("TEST_ENV_VAR")
		}
	}()

	tests := []struct {
		name         string
		setupEnv     func()
		key          string
		defaultValue string
		want         string
	}{
		{
			name: "env var set",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "set-value")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "set-value",
		},
		{
			name: "env var not set",
			setupEnv: func() {
				unsetEnv("TEST_ENV_VAR")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name: "empty env var uses default",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

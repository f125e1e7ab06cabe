package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"purple-ai/internal/chunker"
	"purple-ai/internal/config"
	"purple-ai/internal/http"
	"purple-ai/internal/index"
	"purple-ai/internal/ingest"
	"purple-ai/internal/llm"
	"purple-ai/internal/rag"
	"purple-ai/internal/retriever"
	"purple-ai/internal/service"
	"purple-ai/internal/storage"
	"purple-ai/internal/uploads"
	"purple-ai/internal/vectorstore"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>purple-ai</title></head>
<body>
<h1>purple-ai</h1>
<p>Document Q&amp;A API. Endpoints: POST /api/documents, GET /api/documents,
DELETE /api/documents/{name}, POST /api/search, POST /api/chat, GET /api/health.</p>
</body>
</html>`

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	chunkRepo := storage.NewChunkRepo(db)
	documentRepo := storage.NewDocumentRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Create the index store and ensure the collection exists with the
	// configured vector size (fail-fast on a dimension mismatch)
	storeTimeout := time.Duration(cfg.StoreTimeoutSecs) * time.Second
	indexStore := index.NewStore(chunkRepo, documentRepo, vectorStore, cfg.QdrantCollection, cfg.EmbeddingDimension, storeTimeout)
	if err := indexStore.EnsureReady(context.Background()); err != nil {
		log.Fatalf("Failed to prepare index store: %v", err)
	}
	slog.Info("Index store ready", "collection", cfg.QdrantCollection, "dimension", cfg.EmbeddingDimension)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension, cfg.AsymmetricEmbed)
	probeCtx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	testEmbeddings, err := embedder.EmbedTexts(probeCtx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingDimension {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingDimension, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModelName, "dimension", cfg.EmbeddingDimension, "asymmetric", cfg.AsymmetricEmbed)

	// Create ingestion pipeline
	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}
	pipeline := ingest.NewPipeline(indexStore, textChunker, embedder)

	// Upload storage for document files
	uploadManager, err := uploads.NewManager(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	// Hybrid retriever over the lexical corpus and the vector store
	searcher, err := retriever.NewHybrid(chunkRepo, vectorStore, embedder, cfg.QdrantCollection, cfg.LexicalWeight, cfg.VectorWeight)
	if err != nil {
		log.Fatalf("Failed to create retriever: %v", err)
	}
	slog.Info("Hybrid retriever initialized", "lexical_weight", cfg.LexicalWeight, "vector_weight", cfg.VectorWeight)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Create RAG engine and chat service
	ragEngine := rag.NewEngine(searcher, llmClient)
	chatService := service.NewChatService(llmClient, ragEngine, searcher)
	slog.Info("RAG engine initialized")

	// Create router with dependencies
	deps := &http.Deps{
		ChatService:    chatService,
		Searcher:       searcher,
		Pipeline:       pipeline,
		Index:          indexStore,
		Uploads:        uploadManager,
		VectorStore:    vectorStore,
		LLMClient:      llmClient,
		CollectionName: cfg.QdrantCollection,
		IndexHTML:      indexHTML,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

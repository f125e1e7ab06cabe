package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"purple-ai/internal/handlers"
	"purple-ai/internal/retriever"
	"purple-ai/internal/service"
	"purple-ai/internal/uploads"
	"purple-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    service.ChatService
	Searcher       retriever.Searcher
	Pipeline       handlers.Ingester
	Index          handlers.IndexStore
	Uploads        *uploads.Manager
	VectorStore    vectorstore.VectorStore
	LLMClient      handlers.LLMProber
	CollectionName string
	IndexHTML      string // Embedded HTML content
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	searchHandler := handlers.NewSearchHandler(deps.Searcher)
	documentsHandler := handlers.NewDocumentsHandler(deps.Pipeline, deps.Index, deps.Uploads)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.LLMClient, deps.CollectionName)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/search", searchHandler)
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentsHandler.Upload)
			r.Get("/", documentsHandler.List)
			r.Delete("/{name}", documentsHandler.Delete)
		})
	})

	// Serve HTML page at root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(deps.IndexHTML))
	})

	return r
}

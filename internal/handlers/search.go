package handlers

import (
	"encoding/json"
	"net/http"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/retriever"
)

// defaultSearchK is used when a search request does not specify k.
const defaultSearchK = 5

// SearchHandler handles HTTP requests for hybrid retrieval.
type SearchHandler struct {
	searcher retriever.Searcher
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searcher retriever.Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// SearchRequest represents the HTTP request payload for search.
// K is a pointer so an omitted value defaults while an explicit zero or
// negative value is rejected.
type SearchRequest struct {
	Query string `json:"query"`
	K     *int   `json:"k,omitempty"`
}

// SearchResponse represents the HTTP response payload for search.
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []retriever.Result `json:"results"`
}

// ServeHTTP handles POST /api/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Query == "" {
		logger.WarnContext(ctx, "empty query in search request")
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	k := defaultSearchK
	if req.K != nil {
		k = *req.K
	}

	results, err := h.searcher.Search(ctx, req.Query, k)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to search")
		return
	}

	if results == nil {
		results = []retriever.Result{}
	}
	logger.InfoContext(ctx, "search completed", "query_length", len(req.Query), "k", k, "results", len(results))
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   req.Query,
		Results: results,
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/extract"
	"purple-ai/internal/index"
	"purple-ai/internal/ingest"
	"purple-ai/internal/llm"
	"purple-ai/internal/retriever"
	"purple-ai/internal/service"
	"purple-ai/internal/uploads"
	"purple-ai/internal/vectorstore"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	// IndexedChunks and FailedChunks report the outcome of a partial index
	// write: which chunk IDs made it in and which were rejected, with reasons.
	IndexedChunks []string      `json:"indexed_chunks,omitempty"`
	FailedChunks  []FailedChunk `json:"failed_chunks,omitempty"`
}

// FailedChunk describes a single chunk rejected during indexing.
type FailedChunk struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

// handleServiceError maps domain errors to HTTP status codes: bad input 400,
// partial index writes 422, misconfiguration 500, upstream model services
// 502, and an unreachable store 503.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "request failed", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	var partialErr *index.PartialWriteError
	if errors.As(err, &partialErr) {
		failed := make([]FailedChunk, 0, len(partialErr.Failed))
		for _, entry := range partialErr.Failed {
			failed = append(failed, FailedChunk{ID: entry.ID, Reason: entry.Reason})
		}
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:         fmt.Sprintf("Indexed %d chunks, %d rejected", len(partialErr.Succeeded), len(partialErr.Failed)),
			IndexedChunks: partialErr.Succeeded,
			FailedChunks:  failed,
		})
		return
	}

	switch {
	case errors.Is(err, retriever.ErrInvalidTopK),
		errors.Is(err, extract.ErrUnsupportedType),
		errors.Is(err, ingest.ErrEmptyDocument),
		errors.Is(err, uploads.ErrInvalidName),
		errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, llm.ErrServiceUnavailable), errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, index.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Index store unavailable")
	case errors.Is(err, vectorstore.ErrDimensionMismatch):
		writeError(w, http.StatusInternalServerError, "Embedding dimension mismatch")
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/index"
	"purple-ai/internal/ingest"
	"purple-ai/internal/storage"
	"purple-ai/internal/uploads"
)

// maxUploadBytes caps the multipart form size for document uploads.
const maxUploadBytes = 32 << 20 // 32 MiB

// Ingester is the slice of the ingestion pipeline the handler needs.
type Ingester interface {
	IngestFile(ctx context.Context, sourceName, path string) (*ingest.Result, error)
}

// IndexStore is the slice of the index store the handler needs.
type IndexStore interface {
	ListSources(ctx context.Context) ([]storage.SourceInfo, error)
	DeleteBySource(ctx context.Context, sourceName string) (int, error)
}

// DocumentsHandler handles uploading, listing, and deleting documents.
type DocumentsHandler struct {
	pipeline Ingester
	store    IndexStore
	uploads  *uploads.Manager
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(pipeline Ingester, store IndexStore, uploadMgr *uploads.Manager) *DocumentsHandler {
	return &DocumentsHandler{
		pipeline: pipeline,
		store:    store,
		uploads:  uploadMgr,
	}
}

// UploadResponse represents the HTTP response for a document upload.
type UploadResponse struct {
	SourceName     string `json:"source_name"`
	CharsExtracted int    `json:"chars_extracted"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	ChunksReplaced int    `json:"chunks_replaced"`
}

// ListResponse represents the HTTP response for listing documents.
type ListResponse struct {
	Sources []storage.SourceInfo `json:"sources"`
}

// DeleteResponse represents the HTTP response for deleting a document.
type DeleteResponse struct {
	SourceName    string `json:"source_name"`
	ChunksRemoved int    `json:"chunks_removed"`
}

// Upload handles POST /api/documents: a multipart form with a "file" field.
// The document is stored on disk, then extracted, chunked, embedded, and
// indexed. Uploading an existing source name replaces its chunks.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file field", "error", err)
		writeError(w, http.StatusBadRequest, "A \"file\" form field is required")
		return
	}
	defer file.Close()

	sourceName, err := uploads.SanitizeName(header.Filename)
	if err != nil {
		logger.WarnContext(ctx, "rejected upload filename", "filename", header.Filename, "error", err)
		handleServiceError(w, ctx, err, "Invalid filename")
		return
	}

	storedPath, err := h.uploads.Save(sourceName, file)
	if err != nil {
		logger.ErrorContext(ctx, "failed to store upload", "source", sourceName, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	result, err := h.pipeline.IngestFile(ctx, sourceName, storedPath)
	if err != nil {
		// A partial write still indexed some chunks; report what succeeded
		var partialErr *index.PartialWriteError
		if errors.As(err, &partialErr) {
			logger.WarnContext(ctx, "document partially indexed",
				"source", sourceName, "indexed", len(partialErr.Succeeded), "rejected", len(partialErr.Failed))
		}
		handleServiceError(w, ctx, err, "Failed to ingest document")
		return
	}

	logger.InfoContext(ctx, "document ingested", "source", sourceName, "chunks", result.ChunksIndexed)
	writeJSON(w, http.StatusCreated, UploadResponse{
		SourceName:     result.SourceName,
		CharsExtracted: result.CharsExtracted,
		ChunksIndexed:  result.ChunksIndexed,
		ChunksReplaced: result.ChunksReplaced,
	})
}

// List handles GET /api/documents: all indexed sources with chunk counts.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sources, err := h.store.ListSources(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list documents")
		return
	}

	if sources == nil {
		sources = []storage.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Sources: sources})
}

// Delete handles DELETE /api/documents/{name}: removes a document's chunks
// from the index and its stored file. Deleting an unknown source succeeds
// with a zero count.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	sourceName := chi.URLParam(r, "name")
	if sourceName == "" {
		writeError(w, http.StatusBadRequest, "Document name is required")
		return
	}

	removed, err := h.store.DeleteBySource(ctx, sourceName)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to delete document")
		return
	}

	if err := h.uploads.Remove(sourceName); err != nil {
		// The index entry is already gone; losing the stray file is not fatal
		logger.WarnContext(ctx, "failed to remove stored file", "source", sourceName, "error", err)
	}

	logger.InfoContext(ctx, "document deleted", "source", sourceName, "chunks_removed", removed)
	writeJSON(w, http.StatusOK, DeleteResponse{
		SourceName:    sourceName,
		ChunksRemoved: removed,
	})
}

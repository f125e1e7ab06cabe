package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"purple-ai/internal/index"
	"purple-ai/internal/ingest"
	"purple-ai/internal/storage"
	"purple-ai/internal/uploads"
)

type stubIngester struct {
	result     *ingest.Result
	err        error
	sourceName string
	path       string
}

func (s *stubIngester) IngestFile(_ context.Context, sourceName, path string) (*ingest.Result, error) {
	s.sourceName = sourceName
	s.path = path
	return s.result, s.err
}

type stubIndexStore struct {
	sources   []storage.SourceInfo
	listErr   error
	deleted   string
	deleteN   int
	deleteErr error
}

func (s *stubIndexStore) ListSources(context.Context) ([]storage.SourceInfo, error) {
	return s.sources, s.listErr
}

func (s *stubIndexStore) DeleteBySource(_ context.Context, sourceName string) (int, error) {
	s.deleted = sourceName
	return s.deleteN, s.deleteErr
}

func newUploadsManager(t *testing.T) *uploads.Manager {
	t.Helper()
	mgr, err := uploads.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDocumentsHandler_Upload(t *testing.T) {
	pipeline := &stubIngester{result: &ingest.Result{
		SourceName:     "notes.md",
		CharsExtracted: 420,
		ChunksIndexed:  3,
	}}
	handler := NewDocumentsHandler(pipeline, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.Upload(rec, multipartUpload(t, "notes.md", "# Some notes"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SourceName != "notes.md" || resp.ChunksIndexed != 3 {
		t.Errorf("response = %+v", resp)
	}

	if pipeline.sourceName != "notes.md" {
		t.Errorf("pipeline got source %q, want notes.md", pipeline.sourceName)
	}
	// The uploaded bytes must be on disk where the pipeline was pointed
	content, err := os.ReadFile(pipeline.path)
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(content) != "# Some notes" {
		t.Errorf("stored content = %q", content)
	}
}

func TestDocumentsHandler_Upload_SanitizesFilename(t *testing.T) {
	pipeline := &stubIngester{result: &ingest.Result{SourceName: "notes.md", ChunksIndexed: 1}}
	handler := NewDocumentsHandler(pipeline, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.Upload(rec, multipartUpload(t, "../../escape/notes.md", "content"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if pipeline.sourceName != "notes.md" {
		t.Errorf("pipeline got source %q, want notes.md", pipeline.sourceName)
	}
	if filepath.Base(pipeline.path) != "notes.md" {
		t.Errorf("stored path = %q, should be the sanitized base name", pipeline.path)
	}
}

func TestDocumentsHandler_Upload_UnsupportedType(t *testing.T) {
	handler := NewDocumentsHandler(&stubIngester{}, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.Upload(rec, multipartUpload(t, "image.png", "binary"))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDocumentsHandler_Upload_MissingFile(t *testing.T) {
	handler := NewDocumentsHandler(&stubIngester{}, &stubIndexStore{}, newUploadsManager(t))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDocumentsHandler_Upload_PartialWrite(t *testing.T) {
	pipeline := &stubIngester{
		result: &ingest.Result{SourceName: "notes.md", ChunksIndexed: 2, ChunksRejected: 1},
		err: &index.PartialWriteError{
			Succeeded: []string{"notes.md#0000", "notes.md#0001"},
			Failed:    []index.FailedEntry{{ID: "notes.md#0002", Reason: "dimension mismatch"}},
		},
	}
	handler := NewDocumentsHandler(pipeline, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.Upload(rec, multipartUpload(t, "notes.md", "content"))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.FailedChunks) != 1 || resp.FailedChunks[0].ID != "notes.md#0002" {
		t.Errorf("failed chunks = %+v", resp.FailedChunks)
	}
	if len(resp.IndexedChunks) != 2 || resp.IndexedChunks[0] != "notes.md#0000" || resp.IndexedChunks[1] != "notes.md#0001" {
		t.Errorf("indexed chunks = %+v, want the two accepted IDs", resp.IndexedChunks)
	}
}

func TestDocumentsHandler_Upload_EmptyDocument(t *testing.T) {
	pipeline := &stubIngester{err: ingest.ErrEmptyDocument}
	handler := NewDocumentsHandler(pipeline, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.Upload(rec, multipartUpload(t, "empty.md", ""))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDocumentsHandler_Upload_StoreUnavailable(t *testing.T) {
	pipeline := &stubIngester{err: fmt.Errorf("index write failed: %w", index.ErrStoreUnavailable)}
	handler := NewDocumentsHandler(pipeline, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.Upload(rec, multipartUpload(t, "notes.md", "content"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDocumentsHandler_List(t *testing.T) {
	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &stubIndexStore{sources: []storage.SourceInfo{
		{SourceName: "a.md", ChunkCount: 3, UploadedAt: uploaded},
		{SourceName: "b.pdf", ChunkCount: 7, UploadedAt: uploaded},
	}}
	handler := NewDocumentsHandler(&stubIngester{}, store, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].SourceName != "a.md" || resp.Sources[0].ChunkCount != 3 {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestDocumentsHandler_List_Empty(t *testing.T) {
	handler := NewDocumentsHandler(&stubIngester{}, &stubIndexStore{}, newUploadsManager(t))

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("sources = %#v, want empty slice", resp.Sources)
	}
}

func TestDocumentsHandler_Delete(t *testing.T) {
	tests := []struct {
		name        string
		deleteN     int
		wantRemoved int
	}{
		{"existing document", 4, 4},
		{"unknown document still succeeds", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubIndexStore{deleteN: tt.deleteN}
			handler := NewDocumentsHandler(&stubIngester{}, store, newUploadsManager(t))

			router := chi.NewRouter()
			router.Delete("/api/documents/{name}", handler.Delete)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/notes.md", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp DeleteResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.SourceName != "notes.md" || resp.ChunksRemoved != tt.wantRemoved {
				t.Errorf("response = %+v", resp)
			}
			if store.deleted != "notes.md" {
				t.Errorf("store deleted %q, want notes.md", store.deleted)
			}
		})
	}
}

func TestDocumentsHandler_Delete_StoreUnavailable(t *testing.T) {
	store := &stubIndexStore{deleteErr: fmt.Errorf("delete failed: %w", index.ErrStoreUnavailable)}
	handler := NewDocumentsHandler(&stubIngester{}, store, newUploadsManager(t))

	router := chi.NewRouter()
	router.Delete("/api/documents/{name}", handler.Delete)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents/notes.md", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks purple-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document metadata operations.
type DocumentStore interface {
	// Upsert inserts a new document or refreshes an existing one's stored
	// path and upload time.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// Get gets a document by source name. Returns ErrNotFound if not found.
	Get(ctx context.Context, sourceName string) (*DocumentRecord, error)
	// Delete removes a document row. Chunks cascade via the foreign key.
	Delete(ctx context.Context, sourceName string) error
	// ListSources returns every indexed document with its chunk count,
	// ordered by source name.
	ListSources(ctx context.Context) ([]SourceInfo, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Upsert inserts a new document or updates the stored path and upload time of
// an existing one. Re-uploading a document keeps its chunks keyed to the same
// source name.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (source_name, stored_path, uploaded_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (source_name) DO UPDATE SET
		 stored_path = excluded.stored_path, uploaded_at = CURRENT_TIMESTAMP`,
		doc.SourceName, doc.StoredPath,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// Get gets a document by source name. Returns ErrNotFound if not found.
func (r *DocumentRepo) Get(ctx context.Context, sourceName string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var uploadedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT source_name, stored_path, uploaded_at FROM documents WHERE source_name = ?",
		sourceName,
	).Scan(&doc.SourceName, &doc.StoredPath, &uploadedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.UploadedAt, err = parseSQLiteTime(uploadedAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uploaded_at timestamp: %w", err)
	}

	return &doc, nil
}

// Delete removes a document row. Chunk rows cascade via the foreign key.
// Deleting a non-existent document is not an error.
func (r *DocumentRepo) Delete(ctx context.Context, sourceName string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE source_name = ?", sourceName)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ListSources returns every indexed document with its chunk count, ordered by
// source name. Documents with zero chunks still appear with a count of 0.
func (r *DocumentRepo) ListSources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.source_name, COUNT(c.id), d.uploaded_at
		 FROM documents d
		 LEFT JOIN chunks c ON c.source_name = d.source_name
		 GROUP BY d.source_name
		 ORDER BY d.source_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	sources := []SourceInfo{}
	for rows.Next() {
		var info SourceInfo
		var uploadedAtStr string
		if err := rows.Scan(&info.SourceName, &info.ChunkCount, &uploadedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		info.UploadedAt, err = parseSQLiteTime(uploadedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse uploaded_at timestamp: %w", err)
		}
		sources = append(sources, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sources, nil
}

// parseSQLiteTime parses DATETIME strings produced by CURRENT_TIMESTAMP.
func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	// SQLite might use a different format depending on how the value was written
	return time.Parse(time.RFC3339, s)
}

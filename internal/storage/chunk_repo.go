package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks purple-ai/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// BulkInsert inserts chunks in a single transaction, replacing any rows
	// with the same ID. Either all chunks land or none do.
	BulkInsert(ctx context.Context, chunks []*ChunkRecord) error
	// DeleteBySource deletes all chunks for a given source and returns the
	// number of chunks removed.
	DeleteBySource(ctx context.Context, sourceName string) (int, error)
	// All returns every chunk in the index, ordered by ID. Used to build the
	// lexical corpus for keyword scoring.
	All(ctx context.Context) ([]*ChunkRecord, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// BulkInsert inserts chunks in a single transaction. Re-ingesting a source
// produces the same chunk IDs, so INSERT OR REPLACE keeps the operation
// idempotent.
func (r *ChunkRepo) BulkInsert(ctx context.Context, chunks []*ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO chunks (id, source_name, chunk_index, point_id, text) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.SourceName, chunk.ChunkIndex, chunk.PointID, chunk.Text); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// DeleteBySource deletes all chunks for a given source name and returns the
// number of rows removed. Deleting a source with no chunks returns 0, not an
// error.
func (r *ChunkRepo) DeleteBySource(ctx context.Context, sourceName string) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_name = ?", sourceName)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks by source: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted chunks: %w", err)
	}
	return int(count), nil
}

// All returns every chunk in the index, ordered by ID for deterministic
// scoring and tie-breaks downstream.
func (r *ChunkRepo) All(ctx context.Context) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, source_name, chunk_index, point_id, text FROM chunks ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []*ChunkRecord
	for rows.Next() {
		var chunk ChunkRecord
		if err := rows.Scan(&chunk.ID, &chunk.SourceName, &chunk.ChunkIndex, &chunk.PointID, &chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

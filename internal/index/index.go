// Package index ties the SQLite chunk store and the Qdrant collection
// together behind one write path, so documents cannot end up indexed in one
// backend but not the other.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/storage"
	"purple-ai/internal/vectorstore"
)

// Entry is one chunk to be written into the index.
type Entry struct {
	ID         string
	SourceName string
	ChunkIndex int
	Text       string
	Vector     []float32
}

// Store coordinates chunk text in SQLite with vectors in Qdrant.
type Store struct {
	chunks     storage.ChunkStore
	docs       storage.DocumentStore
	vectors    vectorstore.VectorStore
	collection string
	dimension  int
	timeout    time.Duration
}

// NewStore creates an index store over the given backends. Every store
// operation runs under the given timeout so a hung backend cannot block a
// request indefinitely; a zero timeout disables the deadline.
func NewStore(chunks storage.ChunkStore, docs storage.DocumentStore, vectors vectorstore.VectorStore, collection string, dimension int, timeout time.Duration) *Store {
	return &Store{
		chunks:     chunks,
		docs:       docs,
		vectors:    vectors,
		collection: collection,
		dimension:  dimension,
		timeout:    timeout,
	}
}

// opContext bounds one store operation with the configured timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ChunkID builds the deterministic chunk identifier for a source and ordinal.
// Re-ingesting the same document yields the same IDs, so writes overwrite
// stale entries instead of accumulating duplicates.
func ChunkID(sourceName string, ordinal int) string {
	return fmt.Sprintf("%s#%04d", sourceName, ordinal)
}

// PointID derives the Qdrant point UUID for a chunk ID. Qdrant only accepts
// UUID or integer point IDs, so the readable chunk ID is hashed into a v5
// UUID deterministically.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// EnsureReady creates the collection if it does not exist yet, or validates
// that the existing collection matches the configured embedding dimension.
func (s *Store) EnsureReady(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.vectors.EnsureCollection(ctx, s.collection, s.dimension); err != nil {
		return err
	}
	return nil
}

// BulkWrite writes entries into both backends. Entries with a wrong-sized
// vector are rejected individually; the remaining entries are still written
// and the returned *PartialWriteError reports each rejection. A backend
// failure aborts the whole write.
func (s *Store) BulkWrite(ctx context.Context, entries []Entry) error {
	logger := contextutil.LoggerFromContext(ctx)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var failed []FailedEntry
	var succeeded []string
	records := make([]*storage.ChunkRecord, 0, len(entries))
	points := make([]vectorstore.Point, 0, len(entries))

	for _, entry := range entries {
		if len(entry.Vector) != s.dimension {
			failed = append(failed, FailedEntry{
				ID:     entry.ID,
				Reason: fmt.Sprintf("vector size %d, expected %d", len(entry.Vector), s.dimension),
			})
			continue
		}

		succeeded = append(succeeded, entry.ID)
		pointID := PointID(entry.ID)
		records = append(records, &storage.ChunkRecord{
			ID:         entry.ID,
			SourceName: entry.SourceName,
			ChunkIndex: entry.ChunkIndex,
			PointID:    pointID,
			Text:       entry.Text,
		})
		points = append(points, vectorstore.Point{
			ID:  pointID,
			Vec: entry.Vector,
			Meta: map[string]any{
				"chunk_id":    entry.ID,
				"source_name": entry.SourceName,
				"chunk_index": entry.ChunkIndex,
			},
		})
	}

	if len(records) > 0 {
		if err := s.chunks.BulkInsert(ctx, records); err != nil {
			return fmt.Errorf("failed to write chunks: %w", err)
		}
		if err := s.vectors.Upsert(ctx, s.collection, points); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if len(failed) > 0 {
		logger.WarnContext(ctx, "bulk write rejected entries", "written", len(records), "rejected", len(failed))
		return &PartialWriteError{Succeeded: succeeded, Failed: failed}
	}

	logger.InfoContext(ctx, "bulk write completed", "written", len(records))
	return nil
}

// RegisterSource records document metadata before its chunks are written.
func (s *Store) RegisterSource(ctx context.Context, sourceName, storedPath string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.docs.Upsert(ctx, &storage.DocumentRecord{
		SourceName: sourceName,
		StoredPath: storedPath,
	})
}

// DeleteBySource removes every chunk of a source from both backends and
// returns the number of chunks removed. An unknown source deletes nothing
// and returns 0.
func (s *Store) DeleteBySource(ctx context.Context, sourceName string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.vectors.DeleteBySource(ctx, s.collection, sourceName); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count, err := s.chunks.DeleteBySource(ctx, sourceName)
	if err != nil {
		return 0, err
	}

	if err := s.docs.Delete(ctx, sourceName); err != nil {
		return count, err
	}

	logger.InfoContext(ctx, "deleted source from index", "source", sourceName, "chunks", count)
	return count, nil
}

// ListSources returns every indexed document with its chunk count.
func (s *Store) ListSources(ctx context.Context) ([]storage.SourceInfo, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.docs.ListSources(ctx)
}

// Source gets one document's metadata. Returns storage.ErrNotFound when the
// source is not indexed.
func (s *Store) Source(ctx context.Context, sourceName string) (*storage.DocumentRecord, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	return s.docs.Get(ctx, sourceName)
}

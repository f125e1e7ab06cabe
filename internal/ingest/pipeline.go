// Package ingest turns uploaded documents into indexed chunks: extract text,
// window it, embed the windows, and write them through the index store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"purple-ai/internal/chunker"
	"purple-ai/internal/contextutil"
	"purple-ai/internal/extract"
	"purple-ai/internal/index"
)

// ErrEmptyDocument is returned when a document yields no extractable text.
// Nothing is written to the index in that case.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// IndexWriter is the slice of the index store the pipeline mutates.
type IndexWriter interface {
	RegisterSource(ctx context.Context, sourceName, storedPath string) error
	DeleteBySource(ctx context.Context, sourceName string) (int, error)
	BulkWrite(ctx context.Context, entries []index.Entry) error
}

// DocumentEmbedder embeds document chunks for indexing.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Result summarizes one ingested document.
type Result struct {
	SourceName     string `json:"source_name"`
	CharsExtracted int    `json:"chars_extracted"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	ChunksRejected int    `json:"chunks_rejected"`
	ChunksReplaced int    `json:"chunks_replaced"`
}

// Pipeline orchestrates extraction, chunking, embedding, and index writes.
type Pipeline struct {
	store    IndexWriter
	chunker  *chunker.Chunker
	embedder DocumentEmbedder
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(store IndexWriter, c *chunker.Chunker, embedder DocumentEmbedder) *Pipeline {
	return &Pipeline{
		store:    store,
		chunker:  c,
		embedder: embedder,
	}
}

// IngestFile extracts, chunks, embeds, and indexes one document stored at
// path. sourceName is the user-visible document name all chunks are keyed
// under. Re-ingesting a source first removes its previous chunks so the index
// never mixes generations of the same document.
//
// Extraction, chunking, and embedding all happen before any store mutation:
// a document that fails to embed leaves the index untouched. A partial write
// returns the Result alongside the *index.PartialWriteError.
func (p *Pipeline) IngestFile(ctx context.Context, sourceName, path string) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	text, err := extract.Text(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", sourceName, err)
	}

	result := &Result{
		SourceName:     sourceName,
		CharsExtracted: utf8.RuneCountInString(text),
	}
	if result.CharsExtracted == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, sourceName)
	}

	texts := p.chunker.Split(text)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, sourceName)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks of %s: %w", sourceName, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch for %s: expected %d, got %d", sourceName, len(texts), len(vectors))
	}

	entries := make([]index.Entry, len(texts))
	for i, chunkText := range texts {
		entries[i] = index.Entry{
			ID:         index.ChunkID(sourceName, i),
			SourceName: sourceName,
			ChunkIndex: i,
			Text:       chunkText,
			Vector:     vectors[i],
		}
	}

	replaced, err := p.store.DeleteBySource(ctx, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to clear previous chunks of %s: %w", sourceName, err)
	}
	result.ChunksReplaced = replaced

	if err := p.store.RegisterSource(ctx, sourceName, path); err != nil {
		return nil, fmt.Errorf("failed to register source %s: %w", sourceName, err)
	}

	writeErr := p.store.BulkWrite(ctx, entries)

	var partial *index.PartialWriteError
	if errors.As(writeErr, &partial) {
		result.ChunksIndexed = len(partial.Succeeded)
		result.ChunksRejected = len(partial.Failed)
		logger.WarnContext(ctx, "ingested document with rejected chunks",
			"source", sourceName, "indexed", result.ChunksIndexed, "rejected", result.ChunksRejected)
		return result, writeErr
	}
	if writeErr != nil {
		return nil, writeErr
	}

	result.ChunksIndexed = len(entries)
	logger.InfoContext(ctx, "ingested document",
		"source", sourceName, "chars", result.CharsExtracted, "chunks", result.ChunksIndexed, "replaced", replaced)
	return result, nil
}

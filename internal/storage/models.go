package storage

import "time"

// DocumentRecord represents an uploaded document in the database.
// SourceName is the user-visible document name and the key every chunk
// hangs off of.
type DocumentRecord struct {
	SourceName string
	StoredPath string // Path to the saved upload on disk
	UploadedAt time.Time
}

// ChunkRecord represents a chunk of text from a document, indexed for search.
type ChunkRecord struct {
	ID         string // Format: "<source_name>#<zero-padded index>"
	SourceName string // Foreign key to documents.source_name
	ChunkIndex int    // Index within document (starts at 0)
	PointID    string // Qdrant point UUID derived from ID
	Text       string // Chunk text content
}

// SourceInfo summarizes one indexed document for listing endpoints.
type SourceInfo struct {
	SourceName string    `json:"source_name"`
	ChunkCount int       `json:"chunk_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

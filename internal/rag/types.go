package rag

import "purple-ai/internal/llm"

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// History carries prior conversation turns, oldest first.
	History []llm.Message `json:"history,omitempty"`
	// K optionally specifies the desired chunk count. Defaults to 5, capped at 20.
	K int `json:"k,omitempty"`
}

// Reference represents a chunk that was used in the answer.
type Reference struct {
	// SourceName is the document the chunk came from.
	SourceName string `json:"source_name"`
	// ChunkIndex is the chunk index within the document.
	ChunkIndex int `json:"chunk_index"`
	// Score is the fused retrieval score.
	Score float64 `json:"score"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated answer from the LLM.
	Answer string `json:"answer"`
	// References are the chunks that were used to generate the answer.
	References []Reference `json:"references"`
}

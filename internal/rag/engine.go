// Package rag answers questions over the indexed documents: hybrid retrieval
// feeds a context block into the chat model alongside the conversation so far.
package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks purple-ai/internal/rag Engine

import (
	"context"
	"fmt"
	"strings"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/llm"
	"purple-ai/internal/retriever"
)

const (
	defaultK = 5
	maxK     = 20

	noContextAnswer = "I couldn't find any relevant information in the indexed documents to answer this question."

	systemPrompt = "You are a helpful assistant that answers questions based on the provided context from the user's documents. " +
		"Answer the question using only the information from the context below. If the context doesn't contain " +
		"enough information to answer the question, say so. Name the source documents when possible."
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question by retrieving relevant chunks and generating an answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// ChatClient is the slice of the LLM client the engine needs.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	searcher  retriever.Searcher
	llmClient ChatClient
}

// NewEngine creates a new RAG engine.
func NewEngine(searcher retriever.Searcher, llmClient ChatClient) Engine {
	return &ragEngine{
		searcher:  searcher,
		llmClient: llmClient,
	}
}

// Ask retrieves context for the question and generates an answer.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	k := req.K
	if k == 0 {
		k = defaultK
	}
	if k > maxK {
		k = maxK
	}

	logger.InfoContext(ctx, "RAG query started", "question_length", len(req.Question), "k", k)

	results, err := e.searcher.Search(ctx, req.Question, k)
	if err != nil {
		return AskResponse{}, fmt.Errorf("retrieval failed: %w", err)
	}

	if len(results) == 0 {
		logger.InfoContext(ctx, "no retrieval results")
		return AskResponse{
			Answer:     noContextAnswer,
			References: []Reference{},
		}, nil
	}

	messages := BuildMessages(req.Question, req.History, results)
	logger.DebugContext(ctx, "context assembled", "chunks", len(results), "messages", len(messages))

	answer, err := e.llmClient.ChatWithMessages(ctx, messages, llm.ChatParams{
		Temperature: 0.7,
	})
	if err != nil {
		return AskResponse{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	references := make([]Reference, 0, len(results))
	for _, result := range results {
		references = append(references, Reference{
			SourceName: result.SourceName,
			ChunkIndex: result.ChunkIndex,
			Score:      result.Score,
		})
	}

	logger.InfoContext(ctx, "RAG query completed", "chunks_used", len(results), "answer_length", len(answer))

	return AskResponse{
		Answer:     answer,
		References: references,
	}, nil
}

// BuildMessages assembles the conversation sent to the chat model: the system
// prompt, prior turns, then the question with the retrieved context appended.
// The streaming chat path uses it directly so blocking and streaming answers
// see identical prompts.
func BuildMessages(question string, history []llm.Message, results []retriever.Result) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf("%s\n\n%s", question, buildContextBlock(results)),
	})
	return messages
}

// buildContextBlock formats retrieved chunks into the context section of the
// user message.
func buildContextBlock(results []retriever.Result) string {
	var builder strings.Builder
	builder.WriteString("--- Context from documents ---\n\n")

	for _, result := range results {
		builder.WriteString(fmt.Sprintf("[Document: %s, section %d]\n", result.SourceName, result.ChunkIndex))
		builder.WriteString(fmt.Sprintf("Content: %s\n\n", result.Text))
	}

	builder.WriteString("--- End Context ---")
	return builder.String()
}

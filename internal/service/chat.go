package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks purple-ai/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService purple-ai/internal/service ChatService

import (
	"context"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/llm"
	"purple-ai/internal/rag"
	"purple-ai/internal/retriever"
)

// ragStreamK is the chunk count retrieved for streaming RAG answers,
// matching the engine's default for blocking answers.
const ragStreamK = 5

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// ChatWithMessages sends a conversation to the LLM and returns the reply.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	// StreamChat sends a conversation to the LLM and streams the reply via callback.
	StreamChat(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Message string `validate:"required"`
	History []llm.Message
	UseRAG  bool
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply      string
	References []rag.Reference
}

// ChatService provides chat functionality, with or without retrieval
// augmentation.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// StreamChat processes a chat request and streams the reply via callback.
	// For RAG requests the references used are returned after the stream ends.
	StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) ([]rag.Reference, error)
}

// chatService implements ChatService.
type chatService struct {
	llmClient LLMClient
	engine    rag.Engine
	searcher  retriever.Searcher
}

// NewChatService creates a new ChatService.
func NewChatService(llmClient LLMClient, engine rag.Engine, searcher retriever.Searcher) ChatService {
	return &chatService{
		llmClient: llmClient,
		engine:    engine,
		searcher:  searcher,
	}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// Business validation
	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	if req.UseRAG {
		resp, err := s.engine.Ask(ctx, rag.AskRequest{
			Question: req.Message,
			History:  req.History,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to get RAG response", "error", err)
			return ChatResponse{}, WrapError(err, "failed to get RAG response")
		}

		logger.InfoContext(ctx, "RAG chat request processed", "message_length", len(req.Message), "references", len(resp.References))
		return ChatResponse{
			Reply:      resp.Answer,
			References: resp.References,
		}, nil
	}

	messages := append(append([]llm.Message{}, req.History...), llm.Message{Role: "user", Content: req.Message})
	reply, err := s.llmClient.ChatWithMessages(ctx, messages, llm.ChatParams{})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return ChatResponse{}, WrapError(err, "failed to get LLM response")
	}

	logger.InfoContext(ctx, "chat request processed", "message_length", len(req.Message), "reply_length", len(reply))
	return ChatResponse{
		Reply: reply,
	}, nil
}

// StreamChat processes a chat request and streams the response. RAG requests
// retrieve first so the streamed answer is grounded in the same prompt the
// blocking path would use; the references come back once the stream is done.
func (s *chatService) StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) ([]rag.Reference, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// Business validation
	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in streaming chat request")
		return nil, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	var messages []llm.Message
	var references []rag.Reference

	if req.UseRAG {
		results, err := s.searcher.Search(ctx, req.Message, ragStreamK)
		if err != nil {
			logger.ErrorContext(ctx, "retrieval failed for streaming chat", "error", err)
			return nil, WrapError(err, "retrieval failed")
		}

		if len(results) > 0 {
			messages = rag.BuildMessages(req.Message, req.History, results)
			references = make([]rag.Reference, 0, len(results))
			for _, result := range results {
				references = append(references, rag.Reference{
					SourceName: result.SourceName,
					ChunkIndex: result.ChunkIndex,
					Score:      result.Score,
				})
			}
		} else {
			// Nothing retrieved; answer from the conversation alone
			messages = append(append([]llm.Message{}, req.History...), llm.Message{Role: "user", Content: req.Message})
		}
	} else {
		messages = append(append([]llm.Message{}, req.History...), llm.Message{Role: "user", Content: req.Message})
	}

	if err := s.llmClient.StreamChat(ctx, messages, llm.ChatParams{}, callback); err != nil {
		logger.ErrorContext(ctx, "failed to stream LLM response", "error", err)
		return nil, WrapError(err, "failed to stream LLM response")
	}

	logger.InfoContext(ctx, "streaming chat request processed", "message_length", len(req.Message), "use_rag", req.UseRAG)
	return references, nil
}

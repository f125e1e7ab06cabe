package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"purple-ai/internal/contextutil"
	"purple-ai/internal/llm"
	"purple-ai/internal/rag"
	"purple-ai/internal/service"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// HistoryMessage is one prior conversation turn in the HTTP payload.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string           `json:"message"`
	History []HistoryMessage `json:"history,omitempty"`
	UseRAG  bool             `json:"use_rag,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply      string          `json:"reply"`
	References []rag.Reference `json:"references,omitempty"`
}

// ServeHTTP handles POST /api/chat. With ?stream=true the reply is sent as
// Server-Sent Events; for RAG requests the references follow the streamed
// text as a final "references" event.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcReq := service.ChatRequest{
		Message: req.Message,
		History: historyMessages(req.History),
		UseRAG:  req.UseRAG,
	}

	if r.URL.Query().Get("stream") == "true" {
		h.streamChat(w, r, svcReq)
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, svcReq)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:      svcResp.Reply,
		References: svcResp.References,
	})
}

// streamChat streams the reply using Server-Sent Events.
func (h *ChatHandler) streamChat(w http.ResponseWriter, r *http.Request, req service.ChatRequest) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	references, err := h.chatService.StreamChat(ctx, req, func(chunk string) error {
		if err := writeSSEData(w, chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "error streaming chat", "error", err)
		// Headers are already sent; report the failure in-stream
		payload, _ := json.Marshal(ErrorResponse{Error: err.Error()})
		_, _ = fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
		flusher.Flush()
		return
	}

	if len(references) > 0 {
		payload, err := json.Marshal(references)
		if err == nil {
			_, _ = fmt.Fprintf(w, "event: references\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}

	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// writeSSEData writes one chunk as a single SSE event. A newline inside the
// chunk would otherwise terminate the data line and break the event framing,
// so each line of the chunk gets its own "data:" prefix; clients rejoin the
// lines with a newline.
func writeSSEData(w io.Writer, chunk string) error {
	for _, line := range strings.Split(chunk, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// historyMessages converts HTTP history turns to LLM messages.
func historyMessages(history []HistoryMessage) []llm.Message {
	if len(history) == 0 {
		return nil
	}
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"purple-ai/internal/llm"
	"purple-ai/internal/retriever"
	retrievermocks "purple-ai/internal/retriever/mocks"
)

type stubChatClient struct {
	reply    string
	err      error
	messages []llm.Message
}

func (s *stubChatClient) ChatWithMessages(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestEngine_Ask(t *testing.T) {
	ctrl := gomock.NewController(t)
	searcher := retrievermocks.NewMockSearcher(ctrl)

	results := []retriever.Result{
		{ChunkID: "guide.md#0000", SourceName: "guide.md", ChunkIndex: 0, Text: "Deployments use rolling updates.", Score: 0.92},
		{ChunkID: "guide.md#0003", SourceName: "guide.md", ChunkIndex: 3, Text: "Rollbacks revert to the previous replica set.", Score: 0.61},
	}
	searcher.EXPECT().Search(gomock.Any(), "How do deployments work?", 5).Return(results, nil)

	chat := &stubChatClient{reply: "Deployments roll out gradually."}
	engine := NewEngine(searcher, chat)

	resp, err := engine.Ask(context.Background(), AskRequest{Question: "How do deployments work?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if resp.Answer != "Deployments roll out gradually." {
		t.Errorf("Ask() answer = %v", resp.Answer)
	}
	if len(resp.References) != 2 {
		t.Fatalf("Ask() returned %d references, want 2", len(resp.References))
	}
	if resp.References[0].SourceName != "guide.md" || resp.References[0].ChunkIndex != 0 {
		t.Errorf("Ask() reference[0] = %+v", resp.References[0])
	}
	if resp.References[0].Score != 0.92 {
		t.Errorf("Ask() reference[0].Score = %v, want 0.92", resp.References[0].Score)
	}

	// System prompt first, user message last with context block
	if len(chat.messages) != 2 {
		t.Fatalf("Ask() sent %d messages, want 2", len(chat.messages))
	}
	if chat.messages[0].Role != "system" {
		t.Errorf("Ask() first message role = %v, want system", chat.messages[0].Role)
	}
	last := chat.messages[len(chat.messages)-1]
	if !strings.Contains(last.Content, "Deployments use rolling updates.") {
		t.Error("Ask() user message should contain retrieved chunk text")
	}
	if !strings.Contains(last.Content, "guide.md") {
		t.Error("Ask() user message should name the source document")
	}
}

func TestEngine_Ask_IncludesHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	searcher := retrievermocks.NewMockSearcher(ctrl)
	searcher.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]retriever.Result{{ChunkID: "a#0000", SourceName: "a", Text: "fact"}}, nil)

	chat := &stubChatClient{reply: "answer"}
	engine := NewEngine(searcher, chat)

	history := []llm.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	if _, err := engine.Ask(context.Background(), AskRequest{Question: "follow up", History: history}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if len(chat.messages) != 4 {
		t.Fatalf("Ask() sent %d messages, want 4 (system + 2 history + user)", len(chat.messages))
	}
	if chat.messages[1].Content != "earlier question" || chat.messages[2].Content != "earlier answer" {
		t.Error("Ask() should pass history turns in order between system and user messages")
	}
}

func TestEngine_Ask_NoResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	searcher := retrievermocks.NewMockSearcher(ctrl)
	searcher.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).Return([]retriever.Result{}, nil)

	chat := &stubChatClient{reply: "should not be called"}
	engine := NewEngine(searcher, chat)

	resp, err := engine.Ask(context.Background(), AskRequest{Question: "anything"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Answer != noContextAnswer {
		t.Errorf("Ask() with no results answer = %v, want the no-context answer", resp.Answer)
	}
	if len(resp.References) != 0 {
		t.Errorf("Ask() with no results should return empty references, got %d", len(resp.References))
	}
	if chat.messages != nil {
		t.Error("Ask() with no results must not call the LLM")
	}
}

func TestEngine_Ask_KDefaultsAndCap(t *testing.T) {
	tests := []struct {
		name  string
		reqK  int
		wantK int
	}{
		{"zero defaults to 5", 0, 5},
		{"explicit value kept", 8, 8},
		{"capped at 20", 50, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			searcher := retrievermocks.NewMockSearcher(ctrl)
			searcher.EXPECT().Search(gomock.Any(), gomock.Any(), tt.wantK).Return([]retriever.Result{}, nil)

			engine := NewEngine(searcher, &stubChatClient{})
			if _, err := engine.Ask(context.Background(), AskRequest{Question: "q", K: tt.reqK}); err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
		})
	}
}

func TestEngine_Ask_SearchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	searcher := retrievermocks.NewMockSearcher(ctrl)
	searcher.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("store down"))

	engine := NewEngine(searcher, &stubChatClient{})
	if _, err := engine.Ask(context.Background(), AskRequest{Question: "q"}); err == nil {
		t.Error("Ask() with failing searcher should return error")
	}
}

func TestEngine_Ask_LLMFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	searcher := retrievermocks.NewMockSearcher(ctrl)
	searcher.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]retriever.Result{{ChunkID: "a#0000", SourceName: "a", Text: "fact"}}, nil)

	engine := NewEngine(searcher, &stubChatClient{err: errors.New("llm down")})
	if _, err := engine.Ask(context.Background(), AskRequest{Question: "q"}); err == nil {
		t.Error("Ask() with failing LLM should return error")
	}
}

func TestBuildContextBlock(t *testing.T) {
	results := []retriever.Result{
		{SourceName: "a.md", ChunkIndex: 2, Text: "alpha"},
		{SourceName: "b.pdf", ChunkIndex: 0, Text: "beta"},
	}

	block := buildContextBlock(results)
	for _, want := range []string{"a.md", "b.pdf", "alpha", "beta", "--- End Context ---"} {
		if !strings.Contains(block, want) {
			t.Errorf("buildContextBlock() missing %q", want)
		}
	}
}

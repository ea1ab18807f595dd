package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/researchgraph/model"
)

type fakeClient struct {
	out          model.ChatOut
	err          error
	systemPrompt string
	messages     []model.Message
}

func (f *fakeClient) createMessage(ctx context.Context, systemPrompt string, messages []model.Message) (model.ChatOut, error) {
	f.systemPrompt = systemPrompt
	f.messages = messages
	return f.out, f.err
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("system messages become the system prompt", func(t *testing.T) {
		fake := &fakeClient{out: model.ChatOut{Text: "reply"}}
		m := &ChatModel{modelName: "claude-sonnet-4-20250514", client: fake}

		out, err := m.Chat(ctx, []model.Message{
			{Role: model.RoleSystem, Content: "answer briefly"},
			{Role: model.RoleUser, Content: "question"},
			{Role: model.RoleAssistant, Content: "earlier reply"},
		}, nil)
		if err != nil {
			t.Fatalf("Chat returned error: %v", err)
		}
		if out.Text != "reply" {
			t.Errorf("expected 'reply', got %q", out.Text)
		}
		if fake.systemPrompt != "answer briefly" {
			t.Errorf("unexpected system prompt: %q", fake.systemPrompt)
		}
		if len(fake.messages) != 2 {
			t.Errorf("expected 2 conversation messages, got %d", len(fake.messages))
		}
	})

	t.Run("tools are rejected", func(t *testing.T) {
		m := &ChatModel{client: &fakeClient{}}
		_, err := m.Chat(ctx, nil, []model.ToolSpec{{Name: "search"}})
		if err == nil {
			t.Fatal("expected error for tool request")
		}
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		m := &ChatModel{client: &fakeClient{}}
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.Chat(cancelled, nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("default model name", func(t *testing.T) {
		m := NewChatModel("key", "")
		if m.modelName != "claude-sonnet-4-20250514" {
			t.Errorf("expected default model, got %q", m.modelName)
		}
	})
}

func TestExtractSystemPrompt(t *testing.T) {
	system, conversation := extractSystemPrompt([]model.Message{
		{Role: model.RoleSystem, Content: "first"},
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleSystem, Content: "second"},
	})

	if system != "first\n\nsecond" {
		t.Errorf("unexpected system prompt: %q", system)
	}
	if len(conversation) != 1 || conversation[0].Role != model.RoleUser {
		t.Errorf("unexpected conversation: %v", conversation)
	}
}

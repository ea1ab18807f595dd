package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/dshills/researchgraph/model"
)

type fakeClient struct {
	out      model.ChatOut
	err      error
	messages []model.Message
	tools    []model.ToolSpec
}

func (f *fakeClient) generateContent(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	f.messages = messages
	f.tools = tools
	return f.out, f.err
}

func TestChatModel(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the client", func(t *testing.T) {
		fake := &fakeClient{out: model.ChatOut{Text: "hello"}}
		m := &ChatModel{modelName: "gemini-2.5-pro", client: fake}

		out, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "hi"}}, nil)
		if err != nil {
			t.Fatalf("Chat returned error: %v", err)
		}
		if out.Text != "hello" {
			t.Errorf("expected 'hello', got %q", out.Text)
		}
		if len(fake.messages) != 1 {
			t.Errorf("expected 1 forwarded message, got %d", len(fake.messages))
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
		if m.modelName != "gemini-2.5-pro" {
			t.Errorf("expected default model, got %q", m.modelName)
		}
	})
}

func TestSplitMessages(t *testing.T) {
	system, parts := splitMessages([]model.Message{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "question"},
		{Role: model.RoleSystem, Content: "cite sources"},
		{Role: model.RoleAssistant, Content: ""},
	})

	if system != "be terse\n\ncite sources" {
		t.Errorf("unexpected system instruction: %q", system)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 content part, got %d", len(parts))
	}
	if string(parts[0].(genai.Text)) != "question" {
		t.Errorf("unexpected part: %v", parts[0])
	}
}

func TestConvertSchema(t *testing.T) {
	schema := convertSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "search query"},
			"count": map[string]any{"type": "integer"},
		},
		"required": []any{"query"},
	})

	if schema.Type != genai.TypeObject {
		t.Errorf("expected object type, got %v", schema.Type)
	}
	if schema.Properties["query"].Type != genai.TypeString {
		t.Errorf("expected string type for query, got %v", schema.Properties["query"].Type)
	}
	if schema.Properties["query"].Description != "search query" {
		t.Errorf("unexpected description: %q", schema.Properties["query"].Description)
	}
	if schema.Properties["count"].Type != genai.TypeInteger {
		t.Errorf("expected integer type for count, got %v", schema.Properties["count"].Type)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "query" {
		t.Errorf("unexpected required list: %v", schema.Required)
	}

	if convertSchema(nil) != nil {
		t.Error("expected nil schema to pass through")
	}
}

func TestConvertResponse(t *testing.T) {
	t.Run("text parts concatenate", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("first"), genai.Text("second")}},
			}},
		}

		out, err := convertResponse(resp)
		if err != nil {
			t.Fatalf("convertResponse returned error: %v", err)
		}
		if out.Text != "first\nsecond" {
			t.Errorf("unexpected text: %q", out.Text)
		}
	})

	t.Run("function calls become tool calls", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{
					genai.FunctionCall{Name: "search", Args: map[string]any{"query": "go generics"}},
				}},
			}},
		}

		out, err := convertResponse(resp)
		if err != nil {
			t.Fatalf("convertResponse returned error: %v", err)
		}
		if len(out.ToolCalls) != 1 || out.ToolCalls[0].Name != "search" {
			t.Fatalf("unexpected tool calls: %v", out.ToolCalls)
		}
	})

	t.Run("safety block surfaces as SafetyFilterError", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
				SafetyRatings: []*genai.SafetyRating{
					{Category: genai.HarmCategoryDangerousContent, Blocked: true},
				},
			}},
		}

		_, err := convertResponse(resp)
		var safety *SafetyFilterError
		if !errors.As(err, &safety) {
			t.Fatalf("expected SafetyFilterError, got %v", err)
		}
		if safety.Category() == "" || safety.Reason() == "" {
			t.Errorf("expected populated category and reason, got %q / %q", safety.Category(), safety.Reason())
		}
	})

	t.Run("no candidates fails", func(t *testing.T) {
		if _, err := convertResponse(&genai.GenerateContentResponse{}); err == nil {
			t.Fatal("expected error for empty response")
		}
	})
}

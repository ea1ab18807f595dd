package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/researchgraph/model"
)

type fakeClient struct {
	outs  []model.ChatOut
	errs  []error
	calls int
}

func (f *fakeClient) createChatCompletion(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	idx := f.calls
	f.calls++
	var out model.ChatOut
	var err error
	if idx < len(f.outs) {
		out = f.outs[idx]
	}
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return out, err
}

func newTestChatModel(client openaiClient) *ChatModel {
	return &ChatModel{
		modelName:  "gpt-4o-mini",
		client:     client,
		maxRetries: 2,
		retryDelay: time.Millisecond,
	}
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("success passes through", func(t *testing.T) {
		fake := &fakeClient{outs: []model.ChatOut{{Text: "answer"}}}
		m := newTestChatModel(fake)

		out, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "q"}}, nil)
		if err != nil {
			t.Fatalf("Chat returned error: %v", err)
		}
		if out.Text != "answer" {
			t.Errorf("expected 'answer', got %q", out.Text)
		}
		if fake.calls != 1 {
			t.Errorf("expected 1 call, got %d", fake.calls)
		}
	})

	t.Run("transient errors retry until success", func(t *testing.T) {
		fake := &fakeClient{
			outs: []model.ChatOut{{}, {Text: "eventually"}},
			errs: []error{errors.New("429 rate limit exceeded"), nil},
		}
		m := newTestChatModel(fake)

		out, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "q"}}, nil)
		if err != nil {
			t.Fatalf("Chat returned error: %v", err)
		}
		if out.Text != "eventually" {
			t.Errorf("expected retried result, got %q", out.Text)
		}
		if fake.calls != 2 {
			t.Errorf("expected 2 calls, got %d", fake.calls)
		}
	})

	t.Run("permanent errors fail immediately", func(t *testing.T) {
		fake := &fakeClient{errs: []error{errors.New("401 invalid api key")}}
		m := newTestChatModel(fake)

		_, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "q"}}, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if fake.calls != 1 {
			t.Errorf("expected no retries, got %d calls", fake.calls)
		}
	})

	t.Run("retries exhaust", func(t *testing.T) {
		transient := errors.New("connection reset")
		fake := &fakeClient{errs: []error{transient, transient, transient, transient}}
		m := newTestChatModel(fake)

		_, err := m.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: "q"}}, nil)
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if !errors.Is(err, transient) {
			t.Errorf("expected last error in chain, got %v", err)
		}
		if fake.calls != 3 {
			t.Errorf("expected 3 attempts (1 + 2 retries), got %d", fake.calls)
		}
	})

	t.Run("tools are rejected", func(t *testing.T) {
		m := newTestChatModel(&fakeClient{})
		_, err := m.Chat(ctx, nil, []model.ToolSpec{{Name: "search"}})
		if err == nil {
			t.Fatal("expected error for tool request")
		}
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		m := newTestChatModel(&fakeClient{})
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.Chat(cancelled, nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("503 service unavailable"), true},
		{"network", errors.New("network is unreachable"), true},
		{"timeout", errors.New("request timeout"), true},
		{"auth", errors.New("401 unauthorized"), false},
		{"bad request", errors.New("400 invalid model"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isTransientError(tc.err); got != tc.want {
				t.Errorf("isTransientError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

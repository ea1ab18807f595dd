package server

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/dshills/researchgraph/graph/emit"
	"github.com/dshills/researchgraph/llm"
)

// failingLLM fails the first structured call so a run dies at the
// planning node without touching the network.
type failingLLM struct{}

func (failingLLM) GenerateStructured(ctx context.Context, model, prompt string, schema *genai.Schema, out any) error {
	return errors.New("planner unavailable")
}

func (failingLLM) SearchGrounded(ctx context.Context, model, prompt string) (llm.SearchResult, error) {
	return llm.SearchResult{}, errors.New("search unavailable")
}

func TestNewRunnerAmbientEmitter(t *testing.T) {
	t.Run("events reach request and ambient emitters", func(t *testing.T) {
		requestEmitter := emit.NewBufferedEmitter()
		ambient := emit.NewBufferedEmitter()
		run := NewRunner(testConfig(), failingLLM{}, nil, ambient)

		_, err := run(context.Background(), "run-1", RunRequest{Question: "why is the sky blue"}, requestEmitter)
		if err == nil {
			t.Fatal("expected the run to fail")
		}

		for name, b := range map[string]*emit.BufferedEmitter{"request": requestEmitter, "ambient": ambient} {
			if got := len(b.HistoryByMsg("run-1", "run_start")); got != 1 {
				t.Errorf("%s emitter: expected 1 run_start event, got %d", name, got)
			}
			if got := len(b.HistoryByMsg("run-1", "run_error")); got != 1 {
				t.Errorf("%s emitter: expected 1 run_error event, got %d", name, got)
			}
		}
	})

	t.Run("nil ambient leaves the request emitter alone", func(t *testing.T) {
		requestEmitter := emit.NewBufferedEmitter()
		run := NewRunner(testConfig(), failingLLM{}, nil, nil)

		if _, err := run(context.Background(), "run-2", RunRequest{Question: "q"}, requestEmitter); err == nil {
			t.Fatal("expected the run to fail")
		}
		if got := len(requestEmitter.HistoryByMsg("run-2", "run_start")); got != 1 {
			t.Errorf("expected 1 run_start event, got %d", got)
		}
	})
}

package server

import (
	"context"

	"github.com/dshills/researchgraph/agent"
	"github.com/dshills/researchgraph/config"
	"github.com/dshills/researchgraph/graph"
	"github.com/dshills/researchgraph/graph/emit"
	"github.com/dshills/researchgraph/llm"
	"github.com/dshills/researchgraph/model"
)

// RunRequest is one research run as requested over HTTP. Zero config
// values fall back to the server's defaults.
type RunRequest struct {
	Question                string
	InitialSearchQueryCount int
	MaxResearchLoops        int
	ReasoningModel          string
}

// RunFunc executes one research run, emitting progress events to
// emitter, and returns the final state. The Server depends on this
// seam instead of a concrete engine so handler tests can substitute a
// fake run.
type RunFunc func(ctx context.Context, runID string, req RunRequest, emitter emit.Emitter) (agent.ResearchState, error)

// NewRunner builds the production RunFunc: a fresh engine per run
// (engines are cheap; per-run emitters make streaming trivial) backed
// by the shared Gemini client and provider credentials.
//
// ambient receives every run's events alongside the per-request
// emitter; main wires the process log and OTel span emitters through
// it. Nil disables ambient observability.
func NewRunner(cfg *config.Config, llmClient llm.Service, metrics *graph.Metrics, ambient emit.Emitter) RunFunc {
	keys := agent.ModelKeys{
		Gemini:    cfg.GeminiAPIKey,
		OpenAI:    cfg.OpenAIAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
	}

	return func(ctx context.Context, runID string, req RunRequest, emitter emit.Emitter) (agent.ResearchState, error) {
		runEmitter := emitter
		if ambient != nil {
			runEmitter = emit.NewMultiEmitter(emitter, ambient)
		}

		eng, err := agent.BuildGraph(runEmitter, metrics, graph.Options{
			MaxSteps:    cfg.MaxSteps,
			NodeTimeout: cfg.NodeTimeout,
		})
		if err != nil {
			return agent.ResearchState{}, err
		}

		queryCount := req.InitialSearchQueryCount
		if queryCount <= 0 {
			queryCount = cfg.InitialQueryCount
		}
		maxLoops := req.MaxResearchLoops
		if maxLoops <= 0 {
			maxLoops = cfg.MaxResearchLoops
		}

		runCfg := agent.RunConfig{
			LLM: llmClient,
			ResolveModel: func(name string) (model.ChatModel, error) {
				return agent.ResolveReasoningModel(name, keys)
			},
			QueryModel:      cfg.QueryModel,
			ReflectionModel: cfg.ReflectionModel,
			AnswerModel:     cfg.AnswerModel,
			Metrics:         metrics,
		}

		initial := agent.NewInitialState(req.Question, queryCount, maxLoops, req.ReasoningModel)
		return eng.Run(ctx, runID, initial, runCfg)
	}
}

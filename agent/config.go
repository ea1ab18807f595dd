package agent

import (
	"fmt"
	"strings"

	"github.com/dshills/researchgraph/graph"
	"github.com/dshills/researchgraph/llm"
	"github.com/dshills/researchgraph/model"
	"github.com/dshills/researchgraph/model/anthropic"
	"github.com/dshills/researchgraph/model/google"
	"github.com/dshills/researchgraph/model/openai"
)

// Defaults applied when a run does not specify its own values.
const (
	DefaultInitialQueryCount = 3
	DefaultMaxResearchLoops  = 2
)

// RunConfig carries the injected services and model names for one run.
// Nodes receive it on every invocation; there is no process-global
// client state.
type RunConfig struct {
	// LLM performs structured generation and grounded search.
	LLM llm.Service

	// ResolveModel returns the chat model used for final answer
	// composition, selected by name. Required: FinalizeAnswer fails
	// the run when it is nil. Production wires ResolveReasoningModel
	// here.
	ResolveModel func(name string) (model.ChatModel, error)

	// QueryModel generates the search query plan and runs grounded
	// web research.
	QueryModel string

	// ReflectionModel judges sufficiency of gathered material.
	ReflectionModel string

	// AnswerModel composes the final answer unless the run's state
	// names a different reasoning model.
	AnswerModel string

	// Metrics counts recovered external failures. Optional.
	Metrics *graph.Metrics
}

// ModelKeys holds the provider credentials for reasoning-model
// resolution. Only the provider actually selected needs a key.
type ModelKeys struct {
	Gemini    string
	OpenAI    string
	Anthropic string
}

// ResolveReasoningModel maps a model name to a provider adapter:
// "gpt-*"/"o1*"/"o3*" to OpenAI, "claude-*" to Anthropic, everything
// else to Gemini. Selecting a provider without a configured key is an
// error.
func ResolveReasoningModel(name string, keys ModelKeys) (model.ChatModel, error) {
	switch {
	case strings.HasPrefix(name, "gpt-"), strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"):
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("model %q requires OPENAI_API_KEY", name)
		}
		return openai.NewChatModel(keys.OpenAI, name), nil

	case strings.HasPrefix(name, "claude-"):
		if keys.Anthropic == "" {
			return nil, fmt.Errorf("model %q requires ANTHROPIC_API_KEY", name)
		}
		return anthropic.NewChatModel(keys.Anthropic, name), nil

	default:
		if keys.Gemini == "" {
			return nil, fmt.Errorf("model %q requires GEMINI_API_KEY", name)
		}
		return google.NewChatModel(keys.Gemini, name), nil
	}
}

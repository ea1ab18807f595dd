package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/researchgraph/graph"
	"github.com/dshills/researchgraph/llm"
	"github.com/dshills/researchgraph/model"
)

// Node IDs of the research workflow.
const (
	NodeGenerateQuery  = "generate_query"
	NodeWebResearch    = "web_research"
	NodeReflection     = "reflection"
	NodeFinalizeAnswer = "finalize_answer"
)

// GenerateQuery plans the initial web search queries for the research
// topic. The plan size comes from the run's InitialSearchQueryCount
// (DefaultInitialQueryCount when unset). A failed LLM call fails the
// run: with no query plan there is nothing to research.
func GenerateQuery(ctx context.Context, state ResearchState, cfg RunConfig) (graph.Update, error) {
	count := state.InitialSearchQueryCount
	if count <= 0 {
		count = DefaultInitialQueryCount
	}

	prompt := queryWriterPrompt(ResearchTopic(state), count)

	var resp queryPlanResponse
	if err := cfg.LLM.GenerateStructured(ctx, cfg.QueryModel, prompt, queryPlanSchema, &resp); err != nil {
		recordFailure(cfg, err)
		return nil, fmt.Errorf("generate query plan: %w", err)
	}

	queries := make([]Query, 0, len(resp.Queries))
	for _, q := range resp.Queries {
		if q.Query == "" {
			continue
		}
		queries = append(queries, Query{Text: q.Query, Rationale: q.Rationale})
	}

	return graph.Update{FieldQueryList: queries}, nil
}

// WebResearch runs one grounded web search. It executes as a fan-out
// branch: the Send's args put the query and batch ID into the branch
// snapshot's SearchQuery and SearchTaskID.
//
// An upstream failure is recovered here into a degraded update: the
// query is still recorded as ran, with an annotated empty result, and
// the run continues on the other branches' material.
func WebResearch(ctx context.Context, state ResearchState, cfg RunConfig) (graph.Update, error) {
	query := state.SearchQuery

	result, err := cfg.LLM.SearchGrounded(ctx, cfg.QueryModel, webSearcherPrompt(query))
	if err != nil {
		var svcErr *llm.ExternalServiceError
		if errors.As(err, &svcErr) {
			recordFailure(cfg, err)
			return graph.Update{
				FieldSearchQueries:      query,
				FieldWebResearchResults: fmt.Sprintf("Web research for %q returned no results (%s unavailable).", query, svcErr.Service),
			}, nil
		}
		return nil, fmt.Errorf("web research %q: %w", query, err)
	}

	urlMap := ResolveURLs(result.Chunks, state.SearchTaskID)
	citations := ExtractCitations(result, urlMap)
	annotated := InsertCitationMarkers(result.Text, citations)

	var sources []Source
	for _, citation := range citations {
		sources = append(sources, citation.Sources...)
	}

	return graph.Update{
		FieldSearchQueries:      query,
		FieldWebResearchResults: annotated,
		FieldSourcesGathered:    sources,
	}, nil
}

// Reflection judges whether the gathered material answers the topic
// and proposes follow-up queries for what is missing. It also advances
// the loop counter and records how many queries have run, which keeps
// follow-up batch identifiers unique across loop turns.
//
// When the reflection call itself fails, the verdict degrades to
// "sufficient": finalizing with the gathered material beats losing the
// whole run to an auxiliary judgment.
func Reflection(ctx context.Context, state ResearchState, cfg RunConfig) (graph.Update, error) {
	update := graph.Update{
		FieldResearchLoopCount:  state.ResearchLoopCount + 1,
		FieldNumberOfRanQueries: len(state.SearchQueries),
	}

	prompt := reflectionPrompt(ResearchTopic(state), state.WebResearchResults)

	var resp reflectionResponse
	if err := cfg.LLM.GenerateStructured(ctx, cfg.ReflectionModel, prompt, reflectionSchema, &resp); err != nil {
		var svcErr *llm.ExternalServiceError
		if !errors.As(err, &svcErr) {
			return nil, fmt.Errorf("reflection: %w", err)
		}
		recordFailure(cfg, err)
		update[FieldIsSufficient] = true
		update[FieldKnowledgeGap] = fmt.Sprintf("reflection unavailable: %v", svcErr)
		return update, nil
	}

	update[FieldIsSufficient] = resp.IsSufficient
	update[FieldKnowledgeGap] = resp.KnowledgeGap
	if len(resp.FollowUpQueries) > 0 {
		update[FieldFollowUpQueries] = resp.FollowUpQueries
	}
	return update, nil
}

// FinalizeAnswer composes the final answer with the run's reasoning
// model, replaces short source identifiers with the original URLs, and
// appends the answer to the transcript along with the deduplicated
// sources it actually cites.
func FinalizeAnswer(ctx context.Context, state ResearchState, cfg RunConfig) (graph.Update, error) {
	modelName := state.ReasoningModel
	if modelName == "" {
		modelName = cfg.AnswerModel
	}

	if cfg.ResolveModel == nil {
		return nil, &graph.ConfigurationError{Message: "no reasoning model resolver configured"}
	}
	chat, err := cfg.ResolveModel(modelName)
	if err != nil {
		return nil, fmt.Errorf("finalize answer: %w", err)
	}

	prompt := answerPrompt(ResearchTopic(state), state.WebResearchResults)
	out, err := chat.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, nil)
	if err != nil {
		recordFailure(cfg, err)
		return nil, fmt.Errorf("finalize answer with %s: %w", modelName, err)
	}

	answer, cited := RestoreSources(out.Text, state.SourcesGathered)

	return graph.Update{
		FieldMessages:        Message{Role: "assistant", Content: answer},
		FieldSourcesGathered: cited,
	}, nil
}

func recordFailure(cfg RunConfig, err error) {
	var svcErr *llm.ExternalServiceError
	if errors.As(err, &svcErr) {
		cfg.Metrics.RecordExternalFailure(svcErr.Service, svcErr.Op)
		return
	}
	cfg.Metrics.RecordExternalFailure("llm", "chat")
}

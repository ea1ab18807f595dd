// Package agent implements the iterative research workflow: query
// generation, parallel grounded web research, reflection, and answer
// finalization with citation resolution.
package agent

import (
	"fmt"

	"github.com/dshills/researchgraph/graph"
)

// Message is one turn of the user-facing conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Query is a generated search query together with the model's reason
// for proposing it.
type Query struct {
	Text      string `json:"text"`
	Rationale string `json:"rationale"`
}

// Source is one citable web source. ShortURL is the compact identifier
// spliced into intermediate text; Value is the original URL restored in
// the final answer.
type Source struct {
	Label    string `json:"label"`
	ShortURL string `json:"short_url"`
	Value    string `json:"value"`
}

// Citation ties a span of generated text to its sources. Start and End
// are byte offsets into the text the span came from; markers are
// spliced at End.
type Citation struct {
	Start   int      `json:"start_index"`
	End     int      `json:"end_index"`
	Sources []Source `json:"sources"`
}

// ResearchState is the shared state of one research run. Every field a
// node writes is registered in NewResearchStore with exactly one merge
// policy.
type ResearchState struct {
	// Messages is the conversation transcript (message-merge).
	Messages []Message `json:"messages"`

	// SearchQueries records every query actually run (accumulate).
	SearchQueries []string `json:"search_queries"`

	// WebResearchResults holds one citation-annotated summary per
	// completed search (accumulate).
	WebResearchResults []string `json:"web_research_results"`

	// SourcesGathered collects sources across all searches
	// (accumulate).
	SourcesGathered []Source `json:"sources_gathered"`

	// InitialSearchQueryCount is how many queries to generate up
	// front (overwrite).
	InitialSearchQueryCount int `json:"initial_search_query_count"`

	// MaxResearchLoops bounds the reflection loop (overwrite).
	MaxResearchLoops int `json:"max_research_loops"`

	// ResearchLoopCount counts completed reflection turns
	// (overwrite; nodes write monotonically increasing values).
	ResearchLoopCount int `json:"research_loop_count"`

	// ReasoningModel optionally overrides the answer-composition
	// model for this run (overwrite).
	ReasoningModel string `json:"reasoning_model"`

	// QueryList is the most recent generated query plan (overwrite).
	QueryList []Query `json:"query_list"`

	// IsSufficient is reflection's verdict on the gathered material
	// (overwrite).
	IsSufficient bool `json:"is_sufficient"`

	// KnowledgeGap describes what is still missing (overwrite).
	KnowledgeGap string `json:"knowledge_gap"`

	// FollowUpQueries accumulates queries proposed to close the gap
	// (accumulate).
	FollowUpQueries []string `json:"follow_up_queries"`

	// NumberOfRanQueries is the count of queries run so far; used to
	// keep follow-up batch identifiers unique (overwrite).
	NumberOfRanQueries int `json:"number_of_ran_queries"`

	// SearchQuery and SearchTaskID are per-branch scratch fields: a
	// fan-out Send writes them into the branch's snapshot so the web
	// research node knows its query and batch ID (overwrite). They
	// are never part of a branch's output update.
	SearchQuery  string `json:"search_query,omitempty"`
	SearchTaskID int    `json:"search_task_id,omitempty"`
}

// Registered field names. Updates and Send args use these keys.
const (
	FieldMessages                = "messages"
	FieldSearchQueries           = "search_queries"
	FieldWebResearchResults      = "web_research_results"
	FieldSourcesGathered         = "sources_gathered"
	FieldInitialSearchQueryCount = "initial_search_query_count"
	FieldMaxResearchLoops        = "max_research_loops"
	FieldResearchLoopCount       = "research_loop_count"
	FieldReasoningModel          = "reasoning_model"
	FieldQueryList               = "query_list"
	FieldIsSufficient            = "is_sufficient"
	FieldKnowledgeGap            = "knowledge_gap"
	FieldFollowUpQueries         = "follow_up_queries"
	FieldNumberOfRanQueries      = "number_of_ran_queries"
	FieldSearchQuery             = "search_query"
	FieldSearchTaskID            = "search_task_id"
)

// NewResearchStore builds the merge-policy registry for ResearchState.
//
// Accumulating string fields accept a single string or a []string;
// SourcesGathered accepts a Source or []Source; Messages accepts a
// Message or []Message. Overwrite fields accept exactly their declared
// type.
func NewResearchStore() *graph.Store[ResearchState] {
	st := graph.NewStore[ResearchState]()

	st.MustRegister(FieldMessages, graph.MessageMerge, func(s ResearchState, v any) (ResearchState, error) {
		switch m := v.(type) {
		case Message:
			s.Messages = append(s.Messages, m)
		case []Message:
			s.Messages = append(s.Messages, m...)
		default:
			return s, typeError(v)
		}
		return s, nil
	})

	st.MustRegister(FieldSearchQueries, graph.Accumulate, func(s ResearchState, v any) (ResearchState, error) {
		var err error
		s.SearchQueries, err = appendStrings(s.SearchQueries, v)
		return s, err
	})

	st.MustRegister(FieldWebResearchResults, graph.Accumulate, func(s ResearchState, v any) (ResearchState, error) {
		var err error
		s.WebResearchResults, err = appendStrings(s.WebResearchResults, v)
		return s, err
	})

	st.MustRegister(FieldSourcesGathered, graph.Accumulate, func(s ResearchState, v any) (ResearchState, error) {
		switch src := v.(type) {
		case Source:
			s.SourcesGathered = append(s.SourcesGathered, src)
		case []Source:
			s.SourcesGathered = append(s.SourcesGathered, src...)
		default:
			return s, typeError(v)
		}
		return s, nil
	})

	st.MustRegister(FieldFollowUpQueries, graph.Accumulate, func(s ResearchState, v any) (ResearchState, error) {
		var err error
		s.FollowUpQueries, err = appendStrings(s.FollowUpQueries, v)
		return s, err
	})

	st.MustRegister(FieldInitialSearchQueryCount, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		n, ok := v.(int)
		if !ok {
			return s, typeError(v)
		}
		s.InitialSearchQueryCount = n
		return s, nil
	})

	st.MustRegister(FieldMaxResearchLoops, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		n, ok := v.(int)
		if !ok {
			return s, typeError(v)
		}
		s.MaxResearchLoops = n
		return s, nil
	})

	st.MustRegister(FieldResearchLoopCount, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		n, ok := v.(int)
		if !ok {
			return s, typeError(v)
		}
		s.ResearchLoopCount = n
		return s, nil
	})

	st.MustRegister(FieldReasoningModel, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		name, ok := v.(string)
		if !ok {
			return s, typeError(v)
		}
		s.ReasoningModel = name
		return s, nil
	})

	st.MustRegister(FieldQueryList, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		queries, ok := v.([]Query)
		if !ok {
			return s, typeError(v)
		}
		s.QueryList = queries
		return s, nil
	})

	st.MustRegister(FieldIsSufficient, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		b, ok := v.(bool)
		if !ok {
			return s, typeError(v)
		}
		s.IsSufficient = b
		return s, nil
	})

	st.MustRegister(FieldKnowledgeGap, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		gap, ok := v.(string)
		if !ok {
			return s, typeError(v)
		}
		s.KnowledgeGap = gap
		return s, nil
	})

	st.MustRegister(FieldNumberOfRanQueries, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		n, ok := v.(int)
		if !ok {
			return s, typeError(v)
		}
		s.NumberOfRanQueries = n
		return s, nil
	})

	st.MustRegister(FieldSearchQuery, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		q, ok := v.(string)
		if !ok {
			return s, typeError(v)
		}
		s.SearchQuery = q
		return s, nil
	})

	st.MustRegister(FieldSearchTaskID, graph.Overwrite, func(s ResearchState, v any) (ResearchState, error) {
		id, ok := v.(int)
		if !ok {
			return s, typeError(v)
		}
		s.SearchTaskID = id
		return s, nil
	})

	return st
}

func appendStrings(dst []string, v any) ([]string, error) {
	switch s := v.(type) {
	case string:
		return append(dst, s), nil
	case []string:
		return append(dst, s...), nil
	default:
		return dst, typeError(v)
	}
}

// typeError reports a value of the wrong type reaching a merge policy.
// Store.Apply prefixes the field name.
func typeError(v any) error {
	return fmt.Errorf("unexpected value type %T", v)
}

// ResearchTopic extracts the question under research from the
// transcript: the most recent user message, or the whole transcript
// flattened when none is found.
func ResearchTopic(state ResearchState) string {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == "user" {
			return state.Messages[i].Content
		}
	}
	var topic string
	for _, m := range state.Messages {
		if topic != "" {
			topic += "\n"
		}
		topic += m.Content
	}
	return topic
}

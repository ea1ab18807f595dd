package agent

import (
	"github.com/dshills/researchgraph/graph"
	"github.com/dshills/researchgraph/graph/emit"
)

// BuildGraph wires the research workflow:
//
//	generate_query --(one Send per planned query)--> web_research
//	web_research --> reflection
//	reflection --(loop controller)--> web_research | finalize_answer
//	finalize_answer --> End
//
// The returned engine is ready to Run; construction fails only on
// programming errors in the wiring.
func BuildGraph(emitter emit.Emitter, metrics *graph.Metrics, opts graph.Options) (*graph.Engine[ResearchState, RunConfig], error) {
	eng := graph.New[ResearchState, RunConfig](NewResearchStore(), emitter, metrics, opts)

	nodes := map[string]graph.NodeFunc[ResearchState, RunConfig]{
		NodeGenerateQuery:  GenerateQuery,
		NodeWebResearch:    WebResearch,
		NodeReflection:     Reflection,
		NodeFinalizeAnswer: FinalizeAnswer,
	}
	for id, fn := range nodes {
		if err := eng.Add(id, fn); err != nil {
			return nil, err
		}
	}

	if err := eng.StartAt(NodeGenerateQuery); err != nil {
		return nil, err
	}
	if err := eng.ConnectConditional(NodeGenerateQuery, ContinueToWebResearch); err != nil {
		return nil, err
	}
	if err := eng.Connect(NodeWebResearch, NodeReflection); err != nil {
		return nil, err
	}
	if err := eng.ConnectConditional(NodeReflection, EvaluateResearch); err != nil {
		return nil, err
	}
	if err := eng.Connect(NodeFinalizeAnswer, graph.End); err != nil {
		return nil, err
	}

	return eng, nil
}

// NewInitialState seeds a run's state from the user's question and
// per-run overrides. Zero values keep the defaults resolved at node
// and router level.
func NewInitialState(question string, queryCount, maxLoops int, reasoningModel string) ResearchState {
	return ResearchState{
		Messages:                []Message{{Role: "user", Content: question}},
		InitialSearchQueryCount: queryCount,
		MaxResearchLoops:        maxLoops,
		ReasoningModel:          reasoningModel,
	}
}

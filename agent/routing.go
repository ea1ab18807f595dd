package agent

import "github.com/dshills/researchgraph/graph"

// ContinueToWebResearch fans the generated query plan out into one
// web research branch per query. Each Send tags its branch with the
// query text and a batch ID equal to the query's position, which keeps
// short source identifiers unique within the initial batch.
//
// An empty plan produces an empty fan-out, which the engine rejects as
// a RoutingError; a planner that returns zero queries is a defect
// worth surfacing, not silently finishing.
func ContinueToWebResearch(state ResearchState) graph.Route {
	sends := make([]graph.Send, 0, len(state.QueryList))
	for i, q := range state.QueryList {
		sends = append(sends, graph.Send{
			Node: NodeWebResearch,
			Args: graph.Update{
				FieldSearchQuery:  q.Text,
				FieldSearchTaskID: i,
			},
		})
	}
	return graph.FanOut(sends...)
}

// EvaluateResearch is the loop controller evaluated after reflection.
//
// The run finalizes when reflection judged the material sufficient,
// when the loop budget (MaxResearchLoops, DefaultMaxResearchLoops when
// unset) is exhausted, or when reflection proposed no follow-up
// queries despite remaining budget. Otherwise each follow-up query
// fans out into another research branch, with batch IDs continuing
// from NumberOfRanQueries so identifiers never collide with earlier
// batches.
func EvaluateResearch(state ResearchState) graph.Route {
	maxLoops := state.MaxResearchLoops
	if maxLoops <= 0 {
		maxLoops = DefaultMaxResearchLoops
	}

	if state.IsSufficient || state.ResearchLoopCount >= maxLoops {
		return graph.Goto(NodeFinalizeAnswer)
	}
	if len(state.FollowUpQueries) == 0 {
		return graph.Goto(NodeFinalizeAnswer)
	}

	sends := make([]graph.Send, 0, len(state.FollowUpQueries))
	for i, q := range state.FollowUpQueries {
		sends = append(sends, graph.Send{
			Node: NodeWebResearch,
			Args: graph.Update{
				FieldSearchQuery:  q,
				FieldSearchTaskID: state.NumberOfRanQueries + i,
			},
		})
	}
	return graph.FanOut(sends...)
}

// Package graph provides a generic workflow graph engine: named nodes
// producing partial state updates, per-field merge policies, conditional
// routing, and parallel fan-out with a join barrier.
package graph

// End is the reserved terminal target. Routing to End finishes the run
// and returns the state accumulated so far.
const End = "__end__"

// Route is the destination chosen after a node completes. Exactly one
// of the variants must be populated:
//   - To: a single node ID, or End to finish the run.
//   - Sends: a parallel fan-out; every Send spawns one branch.
//
// A Route carrying neither (or an empty Sends slice) fails the run with
// a RoutingError.
type Route struct {
	To    string
	Sends []Send
}

// Send is one unit of fanned-out work: the target node plus the
// arguments merged into that branch's state snapshot before the node
// runs. All Sends of one Route must target the same node.
type Send struct {
	Node string
	Args Update
}

// Goto returns a Route to a single node. Use Goto(End) to finish.
func Goto(nodeID string) Route {
	return Route{To: nodeID}
}

// FanOut returns a Route that spawns one parallel branch per Send.
func FanOut(sends ...Send) Route {
	return Route{Sends: sends}
}

// Router decides where execution goes after a node completes, based on
// the merged state. Routers should be pure functions: deterministic and
// side-effect free.
//
// Common patterns:
//   - loop control: budget exhausted or goal met → Goto("finalize").
//   - dynamic fan-out: one Send per pending work item.
type Router[S any] func(state S) Route

// Edge is the single outgoing transition of a node, fixed at graph
// construction time. Unconditional edges carry a destination node ID;
// conditional edges carry a Router evaluated against the merged state
// at runtime.
type Edge[S any] struct {
	From   string
	To     string
	Router Router[S]
}

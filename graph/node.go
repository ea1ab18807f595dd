package graph

import "context"

// Update is a partial state update: registered field name to new value.
// Nodes return Updates instead of whole states so the engine can merge
// concurrent branch results field by field through the Store's policies.
//
// An Update naming a field with no registered merge policy fails the
// run with a ReducerMismatchError.
type Update map[string]any

// Node represents a processing unit in the workflow graph.
//
// Run receives a snapshot of the current state and the per-run
// configuration C, performs its work (call an LLM, run a search, pure
// computation), and returns a partial Update. Nodes must not mutate the
// state they receive: parallel branches execute against deep-copied
// snapshots, so in-place mutation would be silently discarded.
//
// A non-nil error aborts the run. Inside a fan-out it aborts the whole
// branch group. Nodes that want to survive an external failure recover
// it themselves and return a degraded Update instead.
//
// Type parameter S is the state type shared across the workflow;
// C carries injected run configuration (clients, model names).
type Node[S, C any] interface {
	Run(ctx context.Context, state S, cfg C) (Update, error)
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	greet := NodeFunc[MyState, MyConfig](func(ctx context.Context, s MyState, c MyConfig) (Update, error) {
//	    return Update{"greeting": "hello"}, nil
//	})
type NodeFunc[S, C any] func(ctx context.Context, state S, cfg C) (Update, error)

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S, C]) Run(ctx context.Context, state S, cfg C) (Update, error) {
	return f(ctx, state, cfg)
}

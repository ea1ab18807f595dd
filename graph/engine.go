package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/researchgraph/graph/emit"
)

// Engine executes a workflow graph to completion.
//
// The Engine:
//   - Manages graph topology (nodes and their single outgoing edges)
//   - Executes nodes sequentially, or in parallel during a fan-out
//   - Merges node Updates into state via the Store's per-field policies
//   - Emits observability events via the emitter
//   - Enforces execution limits (MaxSteps, per-node timeout)
//
// The Engine itself performs no retries and no persistence: a run is
// an in-memory computation from initial state to final state, and any
// retrying of flaky external calls belongs inside the node that makes
// them.
//
// Type parameter S is the state type shared across the workflow;
// C carries per-run configuration handed to every node.
//
// Example:
//
//	st := NewStore[MyState]()
//	st.MustRegister("results", Accumulate, appendResult)
//
//	eng := New[MyState, MyConfig](st, emit.NewLogEmitter(os.Stdout, false), nil, Options{MaxSteps: 50})
//	eng.Add("plan", planNode)
//	eng.Add("work", workNode)
//	eng.StartAt("plan")
//	eng.ConnectConditional("plan", fanOutWork)
//	eng.Connect("work", End)
//
//	final, err := eng.Run(ctx, "run-001", MyState{}, cfg)
type Engine[S, C any] struct {
	mu sync.RWMutex

	// store merges partial updates through per-field policies
	store *Store[S]

	// nodes maps node IDs to Node implementations
	nodes map[string]Node[S, C]

	// edges maps a node ID to its single outgoing edge
	edges map[string]Edge[S]

	// startNode is the entry point for workflow execution
	startNode string

	// emitter receives observability events
	emitter emit.Emitter

	// metrics records run/node instrumentation (optional)
	metrics *Metrics

	// opts contains execution configuration
	opts Options
}

// Options configures Engine execution behavior.
//
// Zero values are valid: no step limit, no node timeout.
type Options struct {
	// MaxSteps limits workflow execution to prevent infinite loops.
	// A fan-out counts as one step regardless of width. If 0, no
	// limit is enforced (use with caution on cyclic graphs).
	MaxSteps int

	// NodeTimeout bounds each node execution. If 0, nodes run until
	// the parent context is done.
	NodeTimeout time.Duration
}

// New creates an Engine.
//
// The store is required; emitter and metrics may be nil (a nil emitter
// is replaced with a NullEmitter). Graph validation happens when Run is
// called, so nodes and edges may be added in any order.
func New[S, C any](store *Store[S], emitter emit.Emitter, metrics *Metrics, opts Options) *Engine[S, C] {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Engine[S, C]{
		store:   store,
		nodes:   make(map[string]Node[S, C]),
		edges:   make(map[string]Edge[S]),
		emitter: emitter,
		metrics: metrics,
		opts:    opts,
	}
}

// Add registers a node in the workflow graph.
//
// Node IDs must be unique and must not collide with the reserved End
// target.
func (e *Engine[S, C]) Add(nodeID string, node Node[S, C]) error {
	if nodeID == "" {
		return &ConfigurationError{Message: "node ID cannot be empty"}
	}
	if nodeID == End {
		return &ConfigurationError{Message: "node ID " + End + " is reserved"}
	}
	if node == nil {
		return &ConfigurationError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &ConfigurationError{Message: "duplicate node ID: " + nodeID}
	}

	e.nodes[nodeID] = node
	return nil
}

// StartAt sets the entry point for workflow execution. The node must
// already be registered.
func (e *Engine[S, C]) StartAt(nodeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &ConfigurationError{Message: "start node does not exist: " + nodeID}
	}

	e.startNode = nodeID
	return nil
}

// Connect sets an unconditional edge: after from completes, execution
// moves to to (or finishes when to is End). Each node has exactly one
// outgoing edge; connecting the same source twice is an error.
func (e *Engine[S, C]) Connect(from, to string) error {
	if from == "" || to == "" {
		return &ConfigurationError{Message: "edge endpoints cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.edges[from]; exists {
		return &ConfigurationError{Message: "node " + from + " already has an outgoing edge"}
	}

	e.edges[from] = Edge[S]{From: from, To: to}
	return nil
}

// ConnectConditional sets a routed edge: after from completes, router
// is evaluated against the merged state to pick the next destination
// (a single node, End, or a fan-out).
func (e *Engine[S, C]) ConnectConditional(from string, router Router[S]) error {
	if from == "" {
		return &ConfigurationError{Message: "edge source cannot be empty"}
	}
	if router == nil {
		return &ConfigurationError{Message: "router cannot be nil for node " + from}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.edges[from]; exists {
		return &ConfigurationError{Message: "node " + from + " already has an outgoing edge"}
	}

	e.edges[from] = Edge[S]{From: from, Router: router}
	return nil
}

// validate checks the graph definition before a run starts. Static
// edge targets must resolve; router destinations are checked at
// evaluation time since they depend on state.
func (e *Engine[S, C]) validate() error {
	if e.store == nil {
		return &ConfigurationError{Message: "store is required"}
	}
	if e.startNode == "" {
		return &ConfigurationError{Message: "no start node set; call StartAt"}
	}
	for from, edge := range e.edges {
		if _, ok := e.nodes[from]; !ok {
			return &ConfigurationError{Message: "edge source does not exist: " + from}
		}
		if edge.Router == nil && edge.To != End {
			if _, ok := e.nodes[edge.To]; !ok {
				return &ConfigurationError{Message: "edge target does not exist: " + edge.To}
			}
		}
	}
	for id := range e.nodes {
		if _, ok := e.edges[id]; !ok {
			return &ConfigurationError{Message: "node " + id + " has no outgoing edge"}
		}
	}
	return nil
}

// Run executes the workflow from the start node until a route reaches
// End, returning the final merged state.
//
// Each iteration executes one node (or one fan-out group), merges its
// Update(s) through the store, then evaluates the node's outgoing
// edge. Errors from nodes, merges, and routing abort the run; the
// partial state is not returned.
func (e *Engine[S, C]) Run(ctx context.Context, runID string, initial S, cfg C) (S, error) {
	var zero S

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.validate(); err != nil {
		return zero, err
	}

	e.emitter.Emit(emit.Event{RunID: runID, Msg: "run_start", Meta: map[string]any{"entry": e.startNode}})

	state := initial
	current := e.startNode
	var pending []Send
	step := 0

	fail := func(err error) (S, error) {
		e.emitter.Emit(emit.Event{RunID: runID, Step: step, Msg: "run_error", Meta: map[string]any{"error": err.Error()}})
		e.metrics.recordRun("error")
		return zero, err
	}

	for {
		step++
		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			return fail(fmt.Errorf("%w: %d steps", ErrMaxStepsExceeded, e.opts.MaxSteps))
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if len(pending) > 0 {
			// All Sends target the same node (validated at routing time).
			merged, err := e.runFanOut(ctx, runID, step, pending, state, cfg)
			if err != nil {
				return fail(err)
			}
			state = merged
			current = pending[0].Node
			pending = nil
		} else {
			node := e.nodes[current]
			e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: current, Msg: "node_start"})

			start := time.Now()
			update, err := executeNodeWithTimeout(ctx, node, current, state, cfg, e.opts.NodeTimeout)
			if err != nil {
				e.metrics.recordNode(current, time.Since(start), "error")
				return fail(fmt.Errorf("node %s: %w", current, err))
			}
			e.metrics.recordNode(current, time.Since(start), "success")

			state, err = e.store.Apply(state, update)
			if err != nil {
				return fail(fmt.Errorf("node %s: %w", current, err))
			}

			e.emitter.Emit(emit.Event{
				RunID: runID, Step: step, NodeID: current, Msg: "node_end",
				Meta: map[string]any{"delta": update, "duration_ms": time.Since(start).Milliseconds()},
			})
		}

		next, sends, done, err := e.route(current, state)
		if err != nil {
			return fail(err)
		}
		if done {
			e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: current, Msg: "run_end"})
			e.metrics.recordRun("success")
			return state, nil
		}
		current = next
		pending = sends
	}
}

// route evaluates the outgoing edge of nodeID against the merged state.
// It returns either the next node, a fan-out group, or done=true when
// the edge reaches End.
func (e *Engine[S, C]) route(nodeID string, state S) (next string, sends []Send, done bool, err error) {
	edge, ok := e.edges[nodeID]
	if !ok {
		return "", nil, false, &RoutingError{From: nodeID, Reason: "no outgoing edge"}
	}

	route := Route{To: edge.To}
	if edge.Router != nil {
		route = edge.Router(state)
	}

	switch {
	case route.To == End:
		return "", nil, true, nil

	case route.To != "":
		if _, ok := e.nodes[route.To]; !ok {
			return "", nil, false, &RoutingError{From: nodeID, Target: route.To, Reason: "unknown node"}
		}
		return route.To, nil, false, nil

	case len(route.Sends) > 0:
		target := route.Sends[0].Node
		if _, ok := e.nodes[target]; !ok {
			return "", nil, false, &RoutingError{From: nodeID, Target: target, Reason: "unknown node"}
		}
		for _, s := range route.Sends {
			if s.Node != target {
				return "", nil, false, &RoutingError{From: nodeID, Target: s.Node,
					Reason: "fan-out sends must target a single node (first was " + target + ")"}
			}
		}
		return "", route.Sends, false, nil

	default:
		return "", nil, false, &RoutingError{From: nodeID, Reason: "router returned no destination"}
	}
}

// runFanOut executes one parallel branch per Send and merges the
// results after every branch has finished.
//
// Each branch runs the target node against a deep copy of state with
// the Send's Args merged in, so branches never observe each other's
// writes. Branch Updates are held until the join barrier and then
// applied sequentially in Send (spawn) order, which keeps merged
// results independent of completion order. A single failing branch
// cancels the group and fails the run; no partial merge happens.
func (e *Engine[S, C]) runFanOut(ctx context.Context, runID string, step int, sends []Send, state S, cfg C) (S, error) {
	var zero S

	target := sends[0].Node
	node := e.nodes[target]

	e.emitter.Emit(emit.Event{
		RunID: runID, Step: step, NodeID: target, Msg: "fan_out",
		Meta: map[string]any{"width": len(sends)},
	})
	e.metrics.recordFanOut(len(sends))

	updates := make([]Update, len(sends))

	g, gctx := errgroup.WithContext(ctx)
	for i, send := range sends {
		g.Go(func() error {
			snapshot, err := deepCopy(state)
			if err != nil {
				return fmt.Errorf("branch %d snapshot: %w", i, err)
			}
			snapshot, err = e.store.Apply(snapshot, send.Args)
			if err != nil {
				return fmt.Errorf("branch %d args: %w", i, err)
			}

			start := time.Now()
			update, err := executeNodeWithTimeout(gctx, node, target, snapshot, cfg, e.opts.NodeTimeout)
			if err != nil {
				e.metrics.recordNode(target, time.Since(start), "error")
				return fmt.Errorf("node %s branch %d: %w", target, i, err)
			}
			e.metrics.recordNode(target, time.Since(start), "success")

			updates[i] = update
			e.emitter.Emit(emit.Event{
				RunID: runID, Step: step, NodeID: target, Msg: "branch_end",
				Meta: map[string]any{"branch": i, "delta": update, "duration_ms": time.Since(start).Milliseconds()},
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return zero, err
	}

	// Join barrier passed: merge in spawn order.
	for i, update := range updates {
		merged, err := e.store.Apply(state, update)
		if err != nil {
			return zero, fmt.Errorf("merge branch %d of %s: %w", i, target, err)
		}
		state = merged
	}
	return state, nil
}

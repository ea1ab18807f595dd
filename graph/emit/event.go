package emit

// Event is an observability event emitted during workflow execution.
//
// The engine emits events for run start/end, node start/end, fan-outs,
// branch completions, and failures. Emitters fan these out to logs,
// OpenTelemetry spans, or live SSE streams.
type Event struct {
	// RunID identifies the workflow execution that emitted this event.
	RunID string

	// Step is the sequential step number in the run (1-indexed).
	// Zero for run-level events emitted before the first step.
	Step int

	// NodeID identifies which node this event concerns.
	// Empty for run-level events.
	NodeID string

	// Msg names the event kind. The engine uses:
	// run_start, node_start, node_end, fan_out, branch_end,
	// run_end, run_error.
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "delta": the Update a node produced
	//   - "duration_ms": execution duration in milliseconds
	//   - "width": fan-out branch count
	//   - "branch": branch index within a fan-out
	//   - "error": failure details
	Meta map[string]any
}

// Package emit provides pluggable observability for workflow runs:
// an Event type, the Emitter interface, and implementations for
// logging, in-memory capture, OpenTelemetry spans, and live streaming.
package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down workflow execution
//   - Thread-safe: fan-out branches emit concurrently
//   - Resilient: never panic; log failures internally
type Emitter interface {
	// Emit sends one event to the configured backend.
	Emit(event Event)
}

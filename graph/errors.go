package graph

import (
	"errors"
	"fmt"
)

// ErrMaxStepsExceeded indicates that a run reached the configured step
// limit without routing to End. This bounds runaway loops.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ConfigurationError reports an invalid graph or run definition:
// missing entry node, duplicate node IDs, edges referencing unknown
// nodes, or a run configuration missing a required dependency.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "graph configuration: " + e.Message
}

// ReducerMismatchError reports an Update naming a field with no
// registered merge policy. This is a programming error and always
// fails the run.
type ReducerMismatchError struct {
	Field string
}

func (e *ReducerMismatchError) Error() string {
	return fmt.Sprintf("no merge policy registered for field %q", e.Field)
}

// RoutingError reports an unroutable transition: an edge or router
// naming an unknown node, a router returning an empty Route, or a
// fan-out whose Sends target more than one node.
type RoutingError struct {
	From   string
	Target string
	Reason string
}

func (e *RoutingError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("routing from %q to %q: %s", e.From, e.Target, e.Reason)
	}
	return fmt.Sprintf("routing from %q: %s", e.From, e.Reason)
}

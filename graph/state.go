package graph

import (
	"encoding/json"
	"fmt"
)

// deepCopy creates a deep copy of state S using JSON round-trip
// serialization. Every fan-out branch runs against its own copy so
// branches never observe each other's writes.
//
// This works for any state type that JSON-marshals cleanly: structs
// with exported fields, slices, maps, primitives. Unexported fields,
// channels, and functions do not survive the round trip; keep them out
// of workflow state.
func deepCopy[S any](state S) (S, error) {
	var zero S

	data, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal state: %w", err)
	}

	var copied S
	if err := json.Unmarshal(data, &copied); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return copied, nil
}

package graph

import (
	"fmt"
	"sort"
)

// MergeKind classifies a field's merge policy. The Kind is descriptive;
// the registered apply function carries the actual semantics. Keeping
// both lets tests and tooling inspect how a field merges without
// invoking the closure.
type MergeKind int

const (
	// Accumulate appends incoming values to an ordered sequence.
	// An update that omits the field leaves it untouched.
	Accumulate MergeKind = iota

	// Overwrite replaces the field's value when an update names it.
	Overwrite

	// MessageMerge appends one message or a batch of messages to a
	// conversation transcript, preserving arrival order.
	MessageMerge
)

func (k MergeKind) String() string {
	switch k {
	case Accumulate:
		return "accumulate"
	case Overwrite:
		return "overwrite"
	case MessageMerge:
		return "message-merge"
	default:
		return fmt.Sprintf("MergeKind(%d)", int(k))
	}
}

// fieldPolicy binds one state field to its merge behavior.
type fieldPolicy[S any] struct {
	kind  MergeKind
	apply func(prev S, value any) (S, error)
}

// Store applies partial Updates to a state value through per-field
// merge policies. Every field a node may write must be registered with
// exactly one policy; applying an Update that names an unregistered
// field fails with ReducerMismatchError.
//
// Apply is deterministic: within one Update, fields merge in sorted
// name order. The engine applies concurrent branch Updates sequentially
// in spawn order, so a full run replays identically given the same
// node outputs.
type Store[S any] struct {
	policies map[string]fieldPolicy[S]
}

// NewStore returns an empty merge-policy registry.
func NewStore[S any]() *Store[S] {
	return &Store[S]{policies: make(map[string]fieldPolicy[S])}
}

// Register binds field to a merge policy. The apply function receives
// the previous state and the incoming value and returns the merged
// state; it should return an error for values of an unexpected type.
// Registering the same field twice is an error.
func (st *Store[S]) Register(field string, kind MergeKind, apply func(prev S, value any) (S, error)) error {
	if field == "" {
		return &ConfigurationError{Message: "merge policy field name is empty"}
	}
	if apply == nil {
		return &ConfigurationError{Message: fmt.Sprintf("merge policy for field %q is nil", field)}
	}
	if _, exists := st.policies[field]; exists {
		return &ConfigurationError{Message: fmt.Sprintf("field %q already has a merge policy", field)}
	}
	st.policies[field] = fieldPolicy[S]{kind: kind, apply: apply}
	return nil
}

// MustRegister is Register that panics on error. Intended for
// package-level registries built from fixed field sets, where a
// duplicate registration is a programming error.
func (st *Store[S]) MustRegister(field string, kind MergeKind, apply func(prev S, value any) (S, error)) {
	if err := st.Register(field, kind, apply); err != nil {
		panic(err)
	}
}

// Registered reports whether field has a merge policy.
func (st *Store[S]) Registered(field string) bool {
	_, ok := st.policies[field]
	return ok
}

// Kind returns the merge kind registered for field. The second return
// is false when the field is unregistered.
func (st *Store[S]) Kind(field string) (MergeKind, bool) {
	p, ok := st.policies[field]
	return p.kind, ok
}

// Apply merges one partial Update into state. Fields merge in sorted
// name order; a field with no registered policy fails the whole Apply
// with ReducerMismatchError and the input state is returned unchanged
// in spirit (callers must treat the returned state as invalid on error).
func (st *Store[S]) Apply(state S, delta Update) (S, error) {
	if len(delta) == 0 {
		return state, nil
	}

	fields := make([]string, 0, len(delta))
	for f := range delta {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		p, ok := st.policies[f]
		if !ok {
			return state, &ReducerMismatchError{Field: f}
		}
		next, err := p.apply(state, delta[f])
		if err != nil {
			return state, fmt.Errorf("merge field %q: %w", f, err)
		}
		state = next
	}
	return state, nil
}

package llm

import "fmt"

// ExternalServiceError reports a failed call to an upstream LLM or
// search service after the local retry budget is exhausted.
//
// Callers decide recovery at the node boundary: web research degrades
// into an annotated empty result, while nodes whose output cannot be
// substituted let the error fail the run.
type ExternalServiceError struct {
	// Service names the upstream ("gemini").
	Service string

	// Op names the failed operation ("generate", "search", "decode").
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

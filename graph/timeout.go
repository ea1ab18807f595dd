package graph

import (
	"context"
	"fmt"
	"time"
)

// executeNodeWithTimeout wraps node execution with timeout enforcement.
//
// With timeout 0 the node runs directly against the parent context.
// Otherwise the node receives a derived deadline context; a node that
// outlives its deadline fails the run rather than being retried, since
// the engine performs no retries of its own.
func executeNodeWithTimeout[S, C any](
	ctx context.Context,
	node Node[S, C],
	nodeID string,
	state S,
	cfg C,
	timeout time.Duration,
) (Update, error) {
	if timeout == 0 {
		return node.Run(ctx, state, cfg)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	update, err := node.Run(timeoutCtx, state, cfg)

	if timeoutCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("node %s exceeded timeout of %v", nodeID, timeout)
	}

	return update, err
}

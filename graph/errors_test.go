package graph

import (
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	t.Run("configuration error", func(t *testing.T) {
		err := &ConfigurationError{Message: "no start node set; call StartAt"}
		if !strings.Contains(err.Error(), "no start node") {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})

	t.Run("reducer mismatch names the field", func(t *testing.T) {
		err := &ReducerMismatchError{Field: "query_list"}
		if !strings.Contains(err.Error(), `"query_list"`) {
			t.Errorf("expected field name in message, got %q", err.Error())
		}
	})

	t.Run("routing error with target", func(t *testing.T) {
		err := &RoutingError{From: "reflection", Target: "ghost", Reason: "unknown node"}
		msg := err.Error()
		if !strings.Contains(msg, "reflection") || !strings.Contains(msg, "ghost") {
			t.Errorf("expected both endpoints in message, got %q", msg)
		}
	})

	t.Run("routing error without target", func(t *testing.T) {
		err := &RoutingError{From: "plan", Reason: "router returned no destination"}
		msg := err.Error()
		if strings.Contains(msg, `to ""`) {
			t.Errorf("empty target should be omitted: %q", msg)
		}
		if !strings.Contains(msg, "plan") {
			t.Errorf("expected source in message, got %q", msg)
		}
	})
}

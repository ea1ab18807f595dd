package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// logRecord is the wire form of one run event. Field names line up
// with the researchgraph.* span attributes so log lines and spans can
// be correlated by run_id and node_id.
type logRecord struct {
	Event  string         `json:"event"`
	RunID  string         `json:"run_id"`
	Step   int            `json:"step,omitempty"`
	NodeID string         `json:"node_id,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// LogEmitter implements Emitter by writing one line per run event,
// either human-readable key=value text or JSONL:
//
//	event=node_end run=run-001 step=3 node=web_research meta={"duration_ms":42}
//	{"event":"node_end","run_id":"run-001","step":3,"node_id":"web_research","meta":{"duration_ms":42}}
//
// Run-level events (run_start, run_error) carry no node and print
// without the node/step segments.
type LogEmitter struct {
	mu       sync.Mutex
	out      io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to out (os.Stdout when
// nil). With jsonMode true it emits JSONL instead of text.
func NewLogEmitter(out io.Writer, jsonMode bool) *LogEmitter {
	if out == nil {
		out = os.Stdout
	}
	return &LogEmitter{out: out, jsonMode: jsonMode}
}

// Emit writes one event line. Safe for concurrent use; fan-out
// branches share the writer.
func (l *LogEmitter) Emit(event Event) {
	rec := logRecord{
		Event:  event.Msg,
		RunID:  event.RunID,
		Step:   event.Step,
		NodeID: event.NodeID,
		Meta:   event.Meta,
	}

	line := rec.text()
	if l.jsonMode {
		line = rec.jsonl()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, line)
}

func (r logRecord) jsonl() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Meta values come from nodes and may not marshal; drop them
		// rather than lose the event.
		r.Meta = map[string]any{"marshal_error": err.Error()}
		data, _ = json.Marshal(r)
	}
	return string(data)
}

func (r logRecord) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "event=%s run=%s", r.Event, r.RunID)
	if r.Step > 0 {
		fmt.Fprintf(&b, " step=%d", r.Step)
	}
	if r.NodeID != "" {
		fmt.Fprintf(&b, " node=%s", r.NodeID)
	}
	if len(r.Meta) > 0 {
		if data, err := json.Marshal(r.Meta); err == nil {
			fmt.Fprintf(&b, " meta=%s", data)
		} else {
			fmt.Fprintf(&b, " meta=%v", r.Meta)
		}
	}
	return b.String()
}

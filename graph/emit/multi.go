package emit

// MultiEmitter implements Emitter by forwarding every event to a fixed
// set of emitters in order. It lets a run combine a per-request emitter
// (an SSE stream) with the process-wide ambient ones (structured log,
// OTel spans).
//
// MultiEmitter adds no locking of its own; each target enforces its own
// thread safety, as the Emitter contract requires.
type MultiEmitter struct {
	targets []Emitter
}

// NewMultiEmitter creates a MultiEmitter over targets. Nil targets are
// skipped, so optional emitters can be passed without nil checks at the
// call site.
func NewMultiEmitter(targets ...Emitter) *MultiEmitter {
	kept := make([]Emitter, 0, len(targets))
	for _, t := range targets {
		if t == nil {
			continue
		}
		kept = append(kept, t)
	}
	return &MultiEmitter{targets: kept}
}

// Emit forwards the event to every target in order.
func (m *MultiEmitter) Emit(event Event) {
	for _, t := range m.targets {
		t.Emit(event)
	}
}

package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory,
// organized by runID. Useful in tests and for post-run inspection.
//
// All events are retained until cleared; not intended for long-lived
// production processes with high event volume.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events
}

// NewBufferedEmitter creates an empty BufferedEmitter. Safe for
// concurrent use.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores one event in the buffer.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// History returns all events for runID in emission order. The returned
// slice is a copy; the empty slice (not nil) is returned for unknown
// runs.
func (b *BufferedEmitter) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// HistoryByMsg returns the events for runID whose Msg matches, in
// emission order.
func (b *BufferedEmitter) HistoryByMsg(runID, msg string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[runID] {
		if event.Msg == msg {
			result = append(result, event)
		}
	}
	return result
}

// Clear removes stored events for runID, or all events when runID is
// empty.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if runID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, runID)
}

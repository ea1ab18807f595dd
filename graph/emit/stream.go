package emit

import "sync"

// StreamEmitter implements Emitter by forwarding events to a channel,
// letting an HTTP handler relay node-by-node progress to a client
// (server-sent events) while the run executes in another goroutine.
//
// Emit never blocks workflow execution: when the consumer falls behind
// and the buffer fills, events are dropped. A slow SSE client misses
// intermediate deltas rather than stalling the run; the final state is
// delivered out of band by the run itself.
//
// Usage:
//
//	stream := emit.NewStreamEmitter(64)
//	go func() {
//		defer stream.Close()
//		final, err = eng.Run(ctx, runID, initial, cfg)
//	}()
//	for event := range stream.Events() {
//		// write SSE frame
//	}
type StreamEmitter struct {
	ch        chan Event
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewStreamEmitter creates a StreamEmitter with the given buffer size
// (minimum 1).
func NewStreamEmitter(buffer int) *StreamEmitter {
	if buffer < 1 {
		buffer = 1
	}
	return &StreamEmitter{ch: make(chan Event, buffer)}
}

// Emit forwards the event to the stream. Events emitted after Close,
// or while the buffer is full, are dropped.
func (s *StreamEmitter) Emit(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	default:
	}
}

// Events returns the receive side of the stream. The channel is closed
// by Close, ending the consumer's range loop.
func (s *StreamEmitter) Events() <-chan Event {
	return s.ch
}

// Close ends the stream. Idempotent; pending buffered events remain
// readable until drained.
func (s *StreamEmitter) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.ch)
	})
}

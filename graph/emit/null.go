package emit

// NullEmitter implements Emitter by discarding all events.
//
// The engine substitutes one automatically when constructed without an
// emitter, so callers never need nil checks around Emit.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter. Safe for concurrent use, zero
// overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(event Event) {}

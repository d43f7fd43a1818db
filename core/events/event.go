package events

import "vaultchain/core/types"

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. journals, logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events raised inside a transaction. The owner flushes it
// after a successful commit and drops it otherwise, so subscribers only ever
// see state changes that were persisted.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Render converts the buffered events into their wire representation.
func (b *Buffer) Render() []*types.Event {
	if b == nil {
		return nil
	}
	out := make([]*types.Event, 0, len(b.events))
	for _, evt := range b.events {
		out = append(out, evt.Event())
	}
	return out
}

// FlushTo forwards buffered events to the emitter and resets the buffer.
func (b *Buffer) FlushTo(emitter Emitter) {
	if b == nil {
		return
	}
	if emitter != nil {
		for _, evt := range b.events {
			emitter.Emit(evt)
		}
	}
	b.events = nil
}

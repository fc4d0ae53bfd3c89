package pipeline

import "github.com/zero-day-ai/eventdrain/event"

// MessageKind distinguishes the variants of Message.
type MessageKind uint8

const (
	// KindItem carries a decoded event.
	KindItem MessageKind = iota

	// KindShutdown is the terminal marker; no message follows it.
	KindShutdown
)

// Message is the value carried by the Aggregator.
type Message struct {
	Kind MessageKind

	// Event is set for KindItem.
	Event event.Event

	// Worker is the pool slot that produced the item.
	Worker int
}

// Item wraps a decoded event produced by worker.
func Item(ev event.Event, worker int) Message {
	return Message{Kind: KindItem, Event: ev, Worker: worker}
}

// Shutdown returns the terminal marker.
func Shutdown() Message {
	return Message{Kind: KindShutdown, Worker: -1}
}

// IsShutdown reports whether m is the terminal marker.
func (m Message) IsShutdown() bool {
	return m.Kind == KindShutdown
}

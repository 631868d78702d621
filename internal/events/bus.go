package events

import (
	"sync/atomic"

	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
	dropped    atomic.Uint64
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(TickEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case TickEvent:
		event.Publish(b.dispatcher, e)
	case ModeChangedEvent:
		event.Publish(b.dispatcher, e)
	case DirectionChangedEvent:
		event.Publish(b.dispatcher, e)
	case RateChangedEvent:
		event.Publish(b.dispatcher, e)
	case RateInputErrorEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case LoopMetricsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e TickEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(TickEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ModeChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DirectionChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RateInputErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LoopMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards events of type T into ch for SSE handlers,
// which select over a channel rather than take callbacks. A full channel
// drops the event and counts it on the bus so a slow client cannot stall
// the publisher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			bus.dropped.Add(1)
		}
	})
}

// Dropped returns how many events SSE subscribers have missed so far.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

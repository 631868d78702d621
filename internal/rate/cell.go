// Package rate carries the inter-tick delay from a blocking input stream to
// the control loop.
//
// A single worker goroutine reads values from a Source and publishes each one
// into a Cell. The control loop loads the Cell once per tick. The Cell holds
// only the latest value; loads never block and never see a torn word.
package rate

import "sync/atomic"

// DefaultMs is the delay in effect until the first value is published.
const DefaultMs = 100

// Cell is a single-producer, single-consumer latest-value slot.
// The zero value holds 0; use NewCell to start from a default.
type Cell struct {
	v atomic.Int64
}

// NewCell returns a cell holding initial.
func NewCell(initial int64) *Cell {
	c := &Cell{}
	c.v.Store(initial)
	return c
}

// Publish overwrites the stored value. No validation is applied.
func (c *Cell) Publish(ms int64) {
	c.v.Store(ms)
}

// Load returns the most recently published value.
func (c *Cell) Load() int64 {
	return c.v.Load()
}

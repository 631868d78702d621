package ledstate

import "github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"

// EdgeFilter turns the middle button into a press event instead of a level.
// Apply it to each polled sample before Advance to toggle the mode once per
// press rather than on every report read while the button is held.
//
// The pointer device only reports on change, so an absent sample leaves the
// remembered button level untouched.
type EdgeFilter struct {
	held bool
}

// Filter returns sample with Middle set only on the unpressed-to-pressed edge.
func (f *EdgeFilter) Filter(sample *types.PointerSample) *types.PointerSample {
	if sample == nil {
		return nil
	}
	out := *sample
	out.Middle = sample.Middle && !f.held
	f.held = sample.Middle
	return &out
}

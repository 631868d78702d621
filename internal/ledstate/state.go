// Package ledstate holds the rotating LED position and its per-tick transition.
//
// A State always has exactly one bit set in Mask. Advance is pure: it takes the
// current state and the pointer sample read this tick (nil when none was queued)
// and returns the next state.
package ledstate

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

const (
	// DefaultWidth is the number of red LEDs on the DE1-SoC PIO bank.
	DefaultWidth = 10
	// MaxWidth is bounded by the 32-bit data register.
	MaxWidth = 32
)

// ErrInvalidWidth is returned when the LED count is outside [1, MaxWidth].
var ErrInvalidWidth = errors.New("led width out of range")

// Direction is the rotational sense applied to the lit position each tick.
type Direction uint8

const (
	// Decreasing moves the lit bit toward bit 0, wrapping to the top bit.
	Decreasing Direction = iota
	// Increasing moves the lit bit toward the top bit, wrapping to bit 0.
	Increasing
)

func (d Direction) String() string {
	switch d {
	case Decreasing:
		return "decreasing"
	case Increasing:
		return "increasing"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Mode selects which pointer signal may reverse the direction.
type Mode uint8

const (
	// ButtonControlled reverses on the left/right buttons.
	ButtonControlled Mode = iota
	// MovementControlled reverses on horizontal motion.
	MovementControlled
)

func (m Mode) String() string {
	switch m {
	case ButtonControlled:
		return "button"
	case MovementControlled:
		return "movement"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// State is the LED bank state mutated once per tick.
type State struct {
	Mask      uint32
	Direction Direction
	Mode      Mode
	Width     uint
}

// New returns the power-on state for a bank of width LEDs:
// bit 0 lit, Decreasing, ButtonControlled.
func New(width int) (State, error) {
	if width < 1 || width > MaxWidth {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	return State{
		Mask:      1,
		Direction: Decreasing,
		Mode:      ButtonControlled,
		Width:     uint(width),
	}, nil
}

// Top returns the mask of the highest-order LED.
func (s State) Top() uint32 {
	return topBit(s.Width)
}

func topBit(width uint) uint32 {
	return uint32(1) << (width - 1)
}

// Position returns the index of the lit LED.
func (s State) Position() int {
	return bits.TrailingZeros32(s.Mask)
}

// Valid reports whether exactly one in-range bit is set.
func (s State) Valid() bool {
	return bits.OnesCount32(s.Mask) == 1 && s.Position() < int(s.Width)
}

func (s State) String() string {
	return fmt.Sprintf("mask=%#0*x pos=%d dir=%s mode=%s",
		(int(s.Width)+3)/4, s.Mask, s.Position(), s.Direction, s.Mode)
}

// Advance applies one tick: mode toggle, direction update, then rotation.
// sample is nil when the pointer had nothing queued.
func Advance(s State, sample *types.PointerSample) State {
	next := s

	if sample != nil {
		// Level-triggered: a held middle button toggles on every tick it is read.
		if sample.Middle {
			next.Mode = toggle(next.Mode)
		}
		next.Direction = steer(next.Mode, next.Direction, sample)
	}

	next.Mask = rotate(next.Mask, next.Direction, next.Width)
	return next
}

func toggle(m Mode) Mode {
	if m == ButtonControlled {
		return MovementControlled
	}
	return ButtonControlled
}

func steer(m Mode, d Direction, sample *types.PointerSample) Direction {
	switch m {
	case ButtonControlled:
		if d == Decreasing && sample.Right {
			return Increasing
		}
		if d == Increasing && sample.Left {
			return Decreasing
		}
	case MovementControlled:
		if d == Decreasing && sample.DX > 0 {
			return Increasing
		}
		if d == Increasing && sample.DX < 0 {
			return Decreasing
		}
	}
	return d
}

func rotate(mask uint32, d Direction, width uint) uint32 {
	top := topBit(width)
	if d == Increasing {
		if mask == top {
			return 1
		}
		return mask << 1
	}
	if mask == 1 {
		return top
	}
	return mask >> 1
}

// Package led drives the LED data register. Every backend accepts the raw
// 32-bit register word; the LEDs are active-low, so a clear bit lights an LED.
package led

import "github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"

// Sink is a register sink that owns a hardware resource.
type Sink interface {
	types.RegisterSink

	// Name identifies the backend in logs and the status API.
	Name() string

	// Close releases the underlying resource.
	Close() error
}

//go:build !linux

package pointer

import (
	"errors"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

// ErrUnsupported is returned on platforms without Linux input devices.
var ErrUnsupported = errors.New("pointer devices are only supported on linux")

// Device is unavailable on this platform.
type Device struct{}

// Open always fails with ErrUnsupported.
func Open(string) (*Device, error) {
	return nil, ErrUnsupported
}

// OpenBlocking always fails with ErrUnsupported.
func OpenBlocking(string) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Path() string {
	return ""
}

func (d *Device) Poll() (types.PointerSample, bool) {
	return types.PointerSample{}, false
}

func (d *Device) ReadReport() (types.PointerSample, error) {
	return types.PointerSample{}, ErrUnsupported
}

func (d *Device) Close() error {
	return nil
}

// Package pointer reads PS/2-style relative pointer reports from a Linux input
// device such as /dev/input/mice.
package pointer

import (
	"errors"
	"fmt"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

// DefaultDevice is the multiplexed mouse device on Linux.
const DefaultDevice = "/dev/input/mice"

// ReportSize is the length of one PS/2 report in bytes.
const ReportSize = 3

// Button bits in the first report byte.
const (
	ButtonLeft   byte = 1 << 0
	ButtonRight  byte = 1 << 1
	ButtonMiddle byte = 1 << 2
)

// ErrShortReport is returned when fewer than ReportSize bytes are available.
var ErrShortReport = errors.New("short pointer report")

// Decode parses one report. Extra bytes beyond ReportSize are ignored.
func Decode(report []byte) (types.PointerSample, error) {
	if len(report) < ReportSize {
		return types.PointerSample{}, fmt.Errorf("%w: got %d bytes", ErrShortReport, len(report))
	}
	flags := report[0]
	return types.PointerSample{
		Left:   flags&ButtonLeft != 0,
		Right:  flags&ButtonRight != 0,
		Middle: flags&ButtonMiddle != 0,
		DX:     int(int8(report[1])),
		DY:     int(int8(report[2])),
	}, nil
}

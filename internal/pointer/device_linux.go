//go:build linux

package pointer

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

// Device is an open pointer device file.
type Device struct {
	fd   int
	path string
}

// Open opens path for non-blocking reads. Poll never waits on it.
func Open(path string) (*Device, error) {
	return open(path, unix.O_NONBLOCK)
}

// OpenBlocking opens path so that ReadReport waits for the next report.
func OpenBlocking(path string) (*Device, error) {
	return open(path, 0)
}

func open(path string, extra int) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC|extra, 0)
	if err != nil {
		return nil, fmt.Errorf("open pointer device %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

// Path returns the device path.
func (d *Device) Path() string { return d.path }

// Poll reads at most one report. Anything other than a full report,
// including EAGAIN, is reported as no sample.
func (d *Device) Poll() (types.PointerSample, bool) {
	var buf [ReportSize]byte
	n, err := unix.Read(d.fd, buf[:])
	if err != nil || n < ReportSize {
		return types.PointerSample{}, false
	}
	sample, err := Decode(buf[:n])
	if err != nil {
		return types.PointerSample{}, false
	}
	return sample, true
}

// ReadReport reads and decodes the next report. On a non-blocking device it
// returns unix.EAGAIN when nothing is queued.
func (d *Device) ReadReport() (types.PointerSample, error) {
	var buf [ReportSize]byte
	n, err := unix.Read(d.fd, buf[:])
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return d.ReadReport()
		}
		return types.PointerSample{}, err
	}
	return Decode(buf[:n])
}

// Close releases the descriptor.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}

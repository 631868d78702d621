//go:build linux

package led

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

type devMem struct {
	file *os.File
	mem  []byte
	reg  *uint32
}

// OpenDevMem maps the register span and returns a sink that stores straight
// into the PIO data register.
func OpenDevMem(cfg DevMemConfig) (Sink, error) {
	cfg = cfg.withDefaults()

	f, err := os.OpenFile(cfg.Path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
	}

	mem, err := unix.Mmap(int(f.Fd()), cfg.Base, cfg.Span, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap %s at 0x%x: %w", cfg.Path, cfg.Base, err)
	}

	off := cfg.offset()
	if off+4 > len(mem) || off%4 != 0 {
		unix.Munmap(mem)
		f.Close()
		return nil, fmt.Errorf("register offset 0x%x outside %d-byte span", off, len(mem))
	}

	return &devMem{
		file: f,
		mem:  mem,
		reg:  (*uint32)(unsafe.Pointer(&mem[off])),
	}, nil
}

func (d *devMem) Name() string { return BackendDevMem }

func (d *devMem) Write(value uint32) error {
	atomic.StoreUint32(d.reg, value)
	return nil
}

func (d *devMem) Close() error {
	return errors.Join(
		unix.Munmap(d.mem),
		d.file.Close(),
	)
}

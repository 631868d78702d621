//go:build !linux

package led

import "errors"

// OpenDevMem is only available on linux.
func OpenDevMem(cfg DevMemConfig) (Sink, error) {
	return nil, errors.New("devmem LED sink requires linux")
}

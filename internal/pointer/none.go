package pointer

import "github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"

// None never yields a sample. Used with --pointer=none.
type None struct{}

func (None) Poll() (types.PointerSample, bool) { return types.PointerSample{}, false }

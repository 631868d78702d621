package led

// Lightweight HPS-to-FPGA bridge layout on the Cyclone V SoC.
const (
	HWRegsBase   = 0xFC000000
	HWRegsSpan   = 0x04000000
	LWBridgeBase = 0xFF200000
	PIOLEDBase   = 0x00000000
)

// DevMemConfig describes where the LED PIO data register lives in physical memory.
type DevMemConfig struct {
	Path     string
	Base     int64
	Span     int
	Register int64
}

// DefaultDevMemConfig maps the red LED PIO of a DE1-SoC.
func DefaultDevMemConfig() DevMemConfig {
	return DevMemConfig{
		Path:     "/dev/mem",
		Base:     HWRegsBase,
		Span:     HWRegsSpan,
		Register: LWBridgeBase + PIOLEDBase,
	}
}

// offset returns the byte offset of the register inside the mapped span.
func (c DevMemConfig) offset() int {
	return int(c.Register & int64(c.Span-1))
}

func (c DevMemConfig) withDefaults() DevMemConfig {
	d := DefaultDevMemConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.Span == 0 {
		c.Base = d.Base
		c.Span = d.Span
		c.Register = d.Register
	}
	return c
}

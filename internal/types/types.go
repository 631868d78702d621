package types

import "context"

// PointerSample is one decoded report from the pointing device.
type PointerSample struct {
	Left   bool `json:"left"`
	Middle bool `json:"middle"`
	Right  bool `json:"right"`
	DX     int  `json:"dx"`
	DY     int  `json:"dy"`
}

// RegisterSink writes a single 32-bit word to the LED data register.
type RegisterSink interface {
	Write(value uint32) error
}

// PointerSource yields pointer samples without blocking.
// ok is false when no report is queued.
type PointerSource interface {
	Poll() (sample PointerSample, ok bool)
}

// RateSource blocks until the next rate value (milliseconds) is available.
type RateSource interface {
	ReadNextRate(ctx context.Context) (int64, error)
}

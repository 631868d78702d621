// Package control runs the LED tick loop: write the register, sleep for the
// current rate, poll the pointer once and advance the state.
package control

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/ledstate"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/mathx"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/rate"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

// Rate bounds applied when the loop reads the cell.
const (
	DefaultMinRate int64 = 1
	DefaultMaxRate int64 = 60000
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Loop.
type Options struct {
	Sink    types.RegisterSink
	Pointer types.PointerSource
	Rate    *rate.Cell
	Width   int

	// MinRate and MaxRate bound the sleep in milliseconds. Zero selects the defaults.
	MinRate int64
	MaxRate int64

	// EdgeToggle flips the mode once per middle-button press instead of on
	// every tick the button reads as held.
	EdgeToggle bool

	// MaxTicks stops the loop after that many iterations. Zero runs forever.
	MaxTicks uint64

	Bus    *events.Bus
	Logger *slog.Logger
	Sleep  SleepFunc
}

// Snapshot is the state after the most recent tick.
type Snapshot struct {
	Tick      uint64         `json:"tick" doc:"Completed iterations"`
	State     ledstate.State `json:"-"`
	Mask      uint32         `json:"mask" doc:"Lit position mask"`
	Register  uint32         `json:"register" doc:"Next word to be written (active-low)"`
	Position  int            `json:"position" doc:"Index of the lit LED"`
	Width     uint           `json:"width" doc:"Number of LEDs"`
	Direction string         `json:"direction" example:"decreasing"`
	Mode      string         `json:"mode" example:"button"`
	RateMs    int64          `json:"rate_ms" doc:"Sleep applied on the last tick"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Loop owns the LED state. Run must be called from a single goroutine.
type Loop struct {
	sink     types.RegisterSink
	pointer  types.PointerSource
	rate     *rate.Cell
	minRate  int64
	maxRate  int64
	maxTicks uint64
	edge     *ledstate.EdgeFilter
	bus      *events.Bus
	logger   *slog.Logger
	sleep    SleepFunc

	state    ledstate.State
	tick     uint64
	snapshot atomic.Pointer[Snapshot]
	sleeping atomic.Int64
}

// New validates opts and returns a loop at the power-on state.
func New(opts Options) (*Loop, error) {
	if opts.Sink == nil {
		return nil, errors.New("control loop needs a register sink")
	}
	if opts.Pointer == nil {
		return nil, errors.New("control loop needs a pointer source")
	}
	if opts.Rate == nil {
		return nil, errors.New("control loop needs a rate cell")
	}

	state, err := ledstate.New(opts.Width)
	if err != nil {
		return nil, err
	}

	l := &Loop{
		sink:     opts.Sink,
		pointer:  opts.Pointer,
		rate:     opts.Rate,
		minRate:  opts.MinRate,
		maxRate:  opts.MaxRate,
		maxTicks: opts.MaxTicks,
		bus:      opts.Bus,
		logger:   opts.Logger,
		sleep:    opts.Sleep,
		state:    state,
	}
	if l.minRate <= 0 {
		l.minRate = DefaultMinRate
	}
	if l.maxRate <= 0 {
		l.maxRate = DefaultMaxRate
	}
	if opts.EdgeToggle {
		l.edge = &ledstate.EdgeFilter{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.sleep == nil {
		l.sleep = Sleep
	}

	l.store(0)
	return l, nil
}

// Run ticks until ctx is cancelled or MaxTicks is reached.
// Cancellation interrupts the sleep; the error is ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Control loop started",
		"state", l.state.String(),
		"min_rate_ms", l.minRate,
		"max_rate_ms", l.maxRate,
		"edge_toggle", l.edge != nil)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.maxTicks > 0 && l.tick >= l.maxTicks {
			l.logger.Info("Control loop reached tick limit", "ticks", l.tick)
			return nil
		}
		if err := l.step(ctx); err != nil {
			return err
		}
	}
}

func (l *Loop) step(ctx context.Context) error {
	prev := l.state

	register := ^prev.Mask
	writeErr := l.sink.Write(register)
	if writeErr != nil {
		l.logger.Warn("LED register write failed", "register", register, "error", writeErr)
	}

	rateMs := mathx.Clamp(l.rate.Load(), l.minRate, l.maxRate)
	l.sleeping.Store(rateMs)
	if err := l.sleep(ctx, time.Duration(rateMs)*time.Millisecond); err != nil {
		return err
	}

	var sample *types.PointerSample
	if s, ok := l.pointer.Poll(); ok {
		sample = &s
		l.logger.Debug("Pointer sample",
			"left", s.Left, "middle", s.Middle, "right", s.Right, "dx", s.DX)
	}
	if l.edge != nil {
		sample = l.edge.Filter(sample)
	}

	l.state = ledstate.Advance(prev, sample)
	l.tick++
	l.store(rateMs)
	l.publishTick(prev, register, rateMs, sample != nil, writeErr)
	return nil
}

// Snapshot returns the state after the latest tick. Safe for concurrent use.
func (l *Loop) Snapshot() Snapshot {
	return *l.snapshot.Load()
}

// SleepingMs returns the sleep of the tick in progress, or 0 before the
// first tick starts. Safe for concurrent use.
func (l *Loop) SleepingMs() int64 {
	return l.sleeping.Load()
}

func (l *Loop) store(rateMs int64) {
	s := l.state
	l.snapshot.Store(&Snapshot{
		Tick:      l.tick,
		State:     s,
		Mask:      s.Mask,
		Register:  ^s.Mask,
		Position:  s.Position(),
		Width:     s.Width,
		Direction: s.Direction.String(),
		Mode:      s.Mode.String(),
		RateMs:    rateMs,
		UpdatedAt: time.Now(),
	})
}

func (l *Loop) publishTick(prev ledstate.State, register uint32, rateMs int64, sampled bool, writeErr error) {
	now := time.Now().Format(time.RFC3339)
	next := l.state

	if next.Mode != prev.Mode {
		l.logger.Info("Mode changed", "from", prev.Mode.String(), "to", next.Mode.String())
		l.publish(events.ModeChangedEvent{
			Tick:      l.tick,
			From:      prev.Mode.String(),
			To:        next.Mode.String(),
			Timestamp: now,
		})
	}
	if next.Direction != prev.Direction {
		l.logger.Info("Direction changed", "from", prev.Direction.String(), "to", next.Direction.String())
		l.publish(events.DirectionChangedEvent{
			Tick:      l.tick,
			From:      prev.Direction.String(),
			To:        next.Direction.String(),
			Timestamp: now,
		})
	}

	ev := events.TickEvent{
		Tick:      l.tick,
		Mask:      prev.Mask,
		Register:  register,
		Position:  prev.Position(),
		Direction: next.Direction.String(),
		Mode:      next.Mode.String(),
		RateMs:    rateMs,
		Sample:    sampled,
		Timestamp: now,
	}
	if writeErr != nil {
		ev.WriteError = writeErr.Error()
	}
	l.publish(ev)
}

func (l *Loop) publish(ev events.Event) {
	if l.bus != nil {
		l.bus.Publish(ev)
	}
}

// Sleep waits for d using a timer, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

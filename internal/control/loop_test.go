package control

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/led"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/ledstate"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/rate"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// scriptedPointer returns one scripted entry per Poll; nil means no report.
type scriptedPointer struct {
	script []*types.PointerSample
	polls  int
}

func (p *scriptedPointer) Poll() (types.PointerSample, bool) {
	i := p.polls
	p.polls++
	if i >= len(p.script) || p.script[i] == nil {
		return types.PointerSample{}, false
	}
	return *p.script[i], true
}

// recordingSleeper records requested durations and never waits.
type recordingSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

type failingSink struct{ calls int }

func (f *failingSink) Write(uint32) error {
	f.calls++
	return errors.New("bus error")
}

func newLoop(t *testing.T, opts Options) *Loop {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	if opts.Rate == nil {
		opts.Rate = rate.NewCell(rate.DefaultMs)
	}
	if opts.Pointer == nil {
		opts.Pointer = &scriptedPointer{}
	}
	if opts.Sleep == nil {
		opts.Sleep = (&recordingSleeper{}).Sleep
	}
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return l
}

func TestLoop_RegisterTrace(t *testing.T) {
	sink := led.NewMemory()
	pointer := &scriptedPointer{script: []*types.PointerSample{
		nil,
		{Left: true},
		{Right: true},
		nil,
	}}

	l := newLoop(t, Options{Sink: sink, Pointer: pointer, Width: 8, MaxTicks: 4})
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []uint32{^uint32(0x01), ^uint32(0x80), ^uint32(0x40), ^uint32(0x80)}
	got := sink.Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %#x, want %#x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %#x, want %#x", i, got[i], want[i])
		}
	}

	snap := l.Snapshot()
	if snap.Tick != 4 || snap.Direction != "increasing" {
		t.Errorf("snapshot = %+v", snap)
	}
	if pointer.polls != 4 {
		t.Errorf("polls = %d, want one per tick", pointer.polls)
	}
}

func TestLoop_WritesBeforeFirstSleep(t *testing.T) {
	sink := led.NewMemory()
	var writesAtSleep []int
	sleep := func(ctx context.Context, d time.Duration) error {
		writesAtSleep = append(writesAtSleep, len(sink.Writes()))
		return nil
	}

	l := newLoop(t, Options{Sink: sink, Width: 8, MaxTicks: 3, Sleep: sleep})
	if err := l.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i, n := range writesAtSleep {
		if n != i+1 {
			t.Errorf("sleep %d saw %d writes, want %d", i, n, i+1)
		}
	}
}

func TestLoop_RateClamped(t *testing.T) {
	tests := []struct {
		name string
		rate int64
		want time.Duration
	}{
		{"default", rate.DefaultMs, 100 * time.Millisecond},
		{"zero", 0, time.Millisecond},
		{"negative", -50, time.Millisecond},
		{"huge", 1 << 40, 60 * time.Second},
		{"in range", 250, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			l := newLoop(t, Options{
				Sink:     led.NewMemory(),
				Rate:     rate.NewCell(tt.rate),
				Width:    8,
				MaxTicks: 1,
				Sleep:    sleeper.Sleep,
			})
			if err := l.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if len(sleeper.slept) != 1 || sleeper.slept[0] != tt.want {
				t.Errorf("slept %v, want [%v]", sleeper.slept, tt.want)
			}
		})
	}
}

func TestLoop_CustomRateBounds(t *testing.T) {
	sleeper := &recordingSleeper{}
	l := newLoop(t, Options{
		Sink:     led.NewMemory(),
		Rate:     rate.NewCell(5),
		Width:    4,
		MinRate:  20,
		MaxRate:  40,
		MaxTicks: 1,
		Sleep:    sleeper.Sleep,
	})
	_ = l.Run(context.Background())
	if sleeper.slept[0] != 20*time.Millisecond {
		t.Errorf("slept %v, want 20ms", sleeper.slept[0])
	}
}

func TestLoop_RateChangeTakesEffect(t *testing.T) {
	cell := rate.NewCell(100)
	sleeper := &recordingSleeper{}
	sleep := func(ctx context.Context, d time.Duration) error {
		_ = sleeper.Sleep(ctx, d)
		cell.Publish(30)
		return nil
	}

	l := newLoop(t, Options{Sink: led.NewMemory(), Rate: cell, Width: 8, MaxTicks: 2, Sleep: sleep})
	_ = l.Run(context.Background())

	if sleeper.slept[0] != 100*time.Millisecond || sleeper.slept[1] != 30*time.Millisecond {
		t.Errorf("slept %v, want [100ms 30ms]", sleeper.slept)
	}
}

func TestLoop_SleepingMsSetBeforeSleep(t *testing.T) {
	cell := rate.NewCell(20000)
	var during int64
	var l *Loop
	sleep := func(ctx context.Context, d time.Duration) error {
		during = l.SleepingMs()
		return nil
	}

	l = newLoop(t, Options{Sink: led.NewMemory(), Rate: cell, Width: 8, MaxTicks: 1, Sleep: sleep})
	if got := l.SleepingMs(); got != 0 {
		t.Errorf("SleepingMs() before Run = %d, want 0", got)
	}
	_ = l.Run(context.Background())

	if during != 20000 {
		t.Errorf("SleepingMs() during sleep = %d, want 20000", during)
	}
	// Once the tick completes the snapshot carries the same sleep.
	if snap := l.Snapshot(); snap.RateMs != 20000 || snap.Tick != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestLoop_SinkErrorNotFatal(t *testing.T) {
	sink := &failingSink{}
	bus := events.New()
	ticks := make(chan events.TickEvent, 8)
	defer bus.Subscribe(func(e events.TickEvent) { ticks <- e })()

	l := newLoop(t, Options{Sink: sink, Width: 8, MaxTicks: 3, Bus: bus})
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sink.calls != 3 {
		t.Errorf("sink calls = %d, want 3 (no retries)", sink.calls)
	}

	select {
	case e := <-ticks:
		if e.WriteError == "" {
			t.Error("TickEvent.WriteError empty on a failing sink")
		}
	case <-time.After(time.Second):
		t.Fatal("no TickEvent")
	}
}

func TestLoop_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := led.NewMemory()
	l := newLoop(t, Options{Sink: sink, Width: 8, Rate: rate.NewCell(60000), Sleep: Sleep})

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		if _, ok := sink.Last(); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no write before cancel")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestLoop_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := led.NewMemory()
	l := newLoop(t, Options{Sink: sink, Width: 8})
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v", err)
	}
	if len(sink.Writes()) != 0 {
		t.Error("wrote after cancellation")
	}
}

func TestLoop_LevelToggleWhileHeld(t *testing.T) {
	held := &types.PointerSample{Middle: true}
	pointer := &scriptedPointer{script: []*types.PointerSample{held, held, held}}

	l := newLoop(t, Options{Sink: led.NewMemory(), Pointer: pointer, Width: 8, MaxTicks: 3})
	_ = l.Run(context.Background())

	if got := l.Snapshot().State.Mode; got != ledstate.MovementControlled {
		t.Errorf("Mode after three held ticks = %s, want movement", got)
	}
}

func TestLoop_EdgeToggleWhileHeld(t *testing.T) {
	held := &types.PointerSample{Middle: true}
	pointer := &scriptedPointer{script: []*types.PointerSample{held, held, held, {}, held}}

	l := newLoop(t, Options{Sink: led.NewMemory(), Pointer: pointer, Width: 8, MaxTicks: 3, EdgeToggle: true})
	_ = l.Run(context.Background())
	if got := l.Snapshot().State.Mode; got != ledstate.MovementControlled {
		t.Errorf("Mode after one held press = %s, want movement", got)
	}

	l.maxTicks = 5
	_ = l.Run(context.Background())
	if got := l.Snapshot().State.Mode; got != ledstate.ButtonControlled {
		t.Errorf("Mode after second press = %s, want button", got)
	}
}

func TestLoop_Events(t *testing.T) {
	bus := events.New()
	modes := make(chan events.ModeChangedEvent, 4)
	dirs := make(chan events.DirectionChangedEvent, 4)
	defer bus.Subscribe(func(e events.ModeChangedEvent) { modes <- e })()
	defer bus.Subscribe(func(e events.DirectionChangedEvent) { dirs <- e })()

	pointer := &scriptedPointer{script: []*types.PointerSample{{Right: true}, {Middle: true}}}
	l := newLoop(t, Options{Sink: led.NewMemory(), Pointer: pointer, Width: 8, MaxTicks: 2, Bus: bus})
	_ = l.Run(context.Background())

	select {
	case e := <-dirs:
		if e.Tick != 1 || e.From != "decreasing" || e.To != "increasing" {
			t.Errorf("DirectionChangedEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no DirectionChangedEvent")
	}
	select {
	case e := <-modes:
		if e.Tick != 2 || e.From != "button" || e.To != "movement" {
			t.Errorf("ModeChangedEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no ModeChangedEvent")
	}
}

func TestNew_Validation(t *testing.T) {
	cell := rate.NewCell(1)
	sink := led.NewMemory()
	pointer := &scriptedPointer{}

	cases := []Options{
		{Pointer: pointer, Rate: cell, Width: 8},
		{Sink: sink, Rate: cell, Width: 8},
		{Sink: sink, Pointer: pointer, Width: 8},
	}
	for i, opts := range cases {
		if _, err := New(opts); err == nil {
			t.Errorf("case %d: New() succeeded", i)
		}
	}
	if _, err := New(Options{Sink: sink, Pointer: pointer, Rate: cell, Width: 0}); !errors.Is(err, ledstate.ErrInvalidWidth) {
		t.Errorf("width 0: error = %v, want ErrInvalidWidth", err)
	}
}

func TestSnapshot_Initial(t *testing.T) {
	l := newLoop(t, Options{Sink: led.NewMemory(), Width: ledstate.DefaultWidth})
	snap := l.Snapshot()
	if snap.Tick != 0 || snap.Mask != 1 || snap.Register != ^uint32(1) || snap.Width != 10 {
		t.Errorf("initial snapshot = %+v", snap)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() ignored cancellation")
	}
}

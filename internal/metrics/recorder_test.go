package metrics

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestRecorder(t *testing.T) {
	Reset()
	bus := events.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	rec := NewRecorder(bus, logger)
	rec.Start()
	defer rec.Stop()

	dirBefore := testutil.ToFloat64(transitions.WithLabelValues("direction"))

	bus.Publish(events.TickEvent{Tick: 7, Position: 3, RateMs: 40})
	bus.Publish(events.DirectionChangedEvent{Tick: 7, From: "decreasing", To: "increasing"})
	bus.Publish(events.RateChangedEvent{Value: 40, Source: "recorder-test"})

	waitFor(t, func() bool { return GetLoopMetrics().Ticks == 7 })
	waitFor(t, func() bool {
		return testutil.ToFloat64(transitions.WithLabelValues("direction"))-dirBefore == 1
	})
	waitFor(t, func() bool {
		return testutil.ToFloat64(rateInput.WithLabelValues("recorder-test")) == 40
	})
}

func TestRecorder_StopUnsubscribes(t *testing.T) {
	Reset()
	bus := events.New()
	rec := NewRecorder(bus, nil)
	rec.Start()
	rec.Stop()

	bus.Publish(events.TickEvent{Tick: 99})
	time.Sleep(20 * time.Millisecond)
	if GetLoopMetrics().Ticks == 99 {
		t.Error("tick recorded after Stop")
	}
}

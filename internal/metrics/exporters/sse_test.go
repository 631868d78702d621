package exporters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/metrics"
)

type mockEventBus struct {
	mu        sync.Mutex
	events    []events.Event
	published chan struct{}
}

func newMockEventBus() *mockEventBus {
	return &mockEventBus{
		events:    make([]events.Event, 0),
		published: make(chan struct{}, 100),
	}
}

func (m *mockEventBus) Publish(ev events.Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	select {
	case m.published <- struct{}{}:
	default:
	}
}

func (m *mockEventBus) getEvents() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.Event, len(m.events))
	copy(result, m.events)
	return result
}

func TestSSEExporterPublishesMetrics(t *testing.T) {
	metrics.Reset()
	metrics.RecordTick(12, 4, 80, false, false)

	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	exporter.interval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	exporter.Start(ctx)

	select {
	case <-mock.published:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for metrics publish")
	}

	cancel()
	exporter.Stop()

	evts := mock.getEvents()
	if len(evts) == 0 {
		t.Fatal("expected at least one event")
	}
	lme, ok := evts[0].(events.LoopMetricsEvent)
	if !ok {
		t.Fatalf("event type = %T, want LoopMetricsEvent", evts[0])
	}
	if lme.Ticks != "12" || lme.RateMs != "80" || lme.Position != "4" {
		t.Errorf("LoopMetricsEvent = %+v", lme)
	}
	if lme.TicksPerSecond != "0.00" {
		t.Errorf("TicksPerSecond = %q, want 0.00 with no new ticks", lme.TicksPerSecond)
	}
	metrics.Reset()
}

func TestSSEExporterTicksPerSecond(t *testing.T) {
	metrics.Reset()
	mock := newMockEventBus()
	exporter := NewSSEExporter(mock)
	start := time.Now()
	exporter.lastAt = start

	metrics.RecordTick(20, 0, 50, false, false)
	exporter.publishMetrics(start.Add(2 * time.Second))

	lme := mock.getEvents()[0].(events.LoopMetricsEvent)
	if lme.TicksPerSecond != "10.00" {
		t.Errorf("TicksPerSecond = %q, want 10.00", lme.TicksPerSecond)
	}
	metrics.Reset()
}

func TestSSEExporterStopWithoutStart(_ *testing.T) {
	exporter := NewSSEExporter(newMockEventBus())
	exporter.Stop()
}

func TestGetEventTypes(t *testing.T) {
	if _, ok := GetEventTypes()["loop-metrics"]; !ok {
		t.Error("loop-metrics missing from event types")
	}
}

type droppingBus struct {
	*mockEventBus
	dropped uint64
}

func (d droppingBus) Dropped() uint64 { return d.dropped }

func TestSSEExporterReportsDroppedEvents(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()

	bus := droppingBus{mockEventBus: newMockEventBus(), dropped: 3}
	exporter := NewSSEExporter(bus)
	exporter.lastAt = time.Now()
	exporter.publishMetrics(time.Now())

	lme := bus.getEvents()[0].(events.LoopMetricsEvent)
	if lme.DroppedEvents != "3" {
		t.Errorf("DroppedEvents = %q, want 3", lme.DroppedEvents)
	}

	plain := newMockEventBus()
	NewSSEExporter(plain).publishMetrics(time.Now())
	if got := plain.getEvents()[0].(events.LoopMetricsEvent).DroppedEvents; got != "0" {
		t.Errorf("DroppedEvents without a counter = %q, want 0", got)
	}
}

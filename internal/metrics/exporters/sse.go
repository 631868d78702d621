package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// dropCounter is implemented by event buses that count events lost to slow
// SSE subscribers.
type dropCounter interface {
	Dropped() uint64
}

// SSEExporter periodically publishes a loop metrics summary for SSE clients.
type SSEExporter struct {
	eventBus  EventPublisher
	interval  time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastTicks uint64
	lastAt    time.Time
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.lastAt = time.Now()
	s.lastTicks = metrics.GetLoopMetrics().Ticks
	s.wg.Add(1)
	go s.run()
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.publishMetrics(now)
		}
	}
}

func (s *SSEExporter) publishMetrics(now time.Time) {
	m := metrics.GetLoopMetrics()

	var tps float64
	if elapsed := now.Sub(s.lastAt).Seconds(); elapsed > 0 && m.Ticks >= s.lastTicks {
		tps = float64(m.Ticks-s.lastTicks) / elapsed
	}
	s.lastTicks = m.Ticks
	s.lastAt = now

	var dropped uint64
	if dc, ok := s.eventBus.(dropCounter); ok {
		dropped = dc.Dropped()
	}

	s.eventBus.Publish(events.LoopMetricsEvent{
		EventType:       "loop_metrics",
		Ticks:           strconv.FormatUint(m.Ticks, 10),
		TicksPerSecond:  strconv.FormatFloat(tps, 'f', 2, 64),
		RateMs:          strconv.FormatInt(m.RateMs, 10),
		Position:        strconv.Itoa(m.Position),
		WriteErrors:     strconv.FormatUint(m.WriteErrors, 10),
		RateInputErrors: strconv.FormatUint(m.RateInputErrors, 10),
		DroppedEvents:   strconv.FormatUint(dropped, 10),
	})
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"loop-metrics": events.LoopMetricsEvent{},
	}
}

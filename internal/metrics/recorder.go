package metrics

import (
	"log/slog"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
)

// Recorder feeds bus events into the Prometheus metrics.
type Recorder struct {
	eventBus     *events.Bus
	unsubscribes []func()
	logger       *slog.Logger
}

// NewRecorder creates a recorder for eventBus.
func NewRecorder(eventBus *events.Bus, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{eventBus: eventBus, logger: logger}
}

// Start subscribes to loop and rate events.
func (r *Recorder) Start() {
	r.unsubscribes = append(r.unsubscribes,
		r.eventBus.Subscribe(func(e events.TickEvent) {
			RecordTick(e.Tick, e.Position, e.RateMs, e.Sample, e.WriteError != "")
		}),
		r.eventBus.Subscribe(func(events.DirectionChangedEvent) {
			RecordTransition("direction")
		}),
		r.eventBus.Subscribe(func(events.ModeChangedEvent) {
			RecordTransition("mode")
		}),
		r.eventBus.Subscribe(func(e events.RateChangedEvent) {
			SetRateInput(e.Source, e.Value)
		}),
		r.eventBus.Subscribe(func(e events.RateInputErrorEvent) {
			RecordRateInputError(e.Source)
		}),
	)
	r.logger.Info("Metrics recorder started")
}

// Stop unsubscribes from the bus.
func (r *Recorder) Stop() {
	for _, unsub := range r.unsubscribes {
		unsub()
	}
	r.unsubscribes = nil
	r.logger.Info("Metrics recorder stopped")
}

package rate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

// Worker moves values from a Source into a Cell.
type Worker struct {
	src    types.RateSource
	name   string
	cell   *Cell
	bus    *events.Bus
	logger *slog.Logger
}

// NewWorker creates a worker. bus may be nil.
func NewWorker(src types.RateSource, name string, cell *Cell, bus *events.Bus, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		src:    src,
		name:   name,
		cell:   cell,
		bus:    bus,
		logger: logger.With("source", name),
	}
}

// Run reads and publishes until the source ends or ctx is cancelled.
// Unparseable tokens are logged and skipped. End of input is not an error:
// the cell keeps its last value.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := w.src.ReadNextRate(ctx)
		if err != nil {
			var perr *ParseError
			switch {
			case errors.As(err, &perr):
				w.logger.Warn("Ignoring rate input", "token", perr.Token, "error", perr.Err)
				w.publish(events.RateInputErrorEvent{
					Token:     perr.Token,
					Error:     perr.Err.Error(),
					Source:    w.name,
					Timestamp: time.Now().Format(time.RFC3339),
				})
				continue
			case errors.Is(err, io.EOF):
				w.logger.Info("Rate input closed, keeping last rate", "rate_ms", w.cell.Load())
				return nil
			default:
				return err
			}
		}

		w.cell.Publish(v)
		w.logger.Info("Rate updated", "rate_ms", v)
		w.publish(events.RateChangedEvent{
			Value:     v,
			Source:    w.name,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

func (w *Worker) publish(ev events.Event) {
	if w.bus != nil {
		w.bus.Publish(ev)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/api"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/config"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/control"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/events"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/led"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/metrics"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/metrics/exporters"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/pointer"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/rate"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/systemd"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/types"
)

const (
	stdinRateInput   = "-"
	noPointer        = "none"
	toggleLevel      = "level"
	toggleEdge       = "edge"
	rateFileDebounce = 50 * time.Millisecond
	shutdownTimeout  = 5 * time.Second
	healthGrace      = 5 * time.Second
)

// app owns every long-lived component of the daemon.
type app struct {
	opts   *Options
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	bus      *events.Bus
	sink     led.Sink
	pointer  types.PointerSource
	rateSrc  types.RateSource
	rateName string
	cell     *rate.Cell
	loop     *control.Loop
	recorder *metrics.Recorder
	exporter *exporters.SSEExporter
	server   *api.Server
	watcher  *config.Watcher[logging.Config]
	notifier *systemd.Notifier

	closers  []io.Closer
	group    errgroup.Group
	stopOnce sync.Once
}

func newApp(opts *Options) *app {
	ctx, cancel := context.WithCancel(context.Background())
	return &app{
		opts:   opts,
		logger: logging.GetLogger(logging.ModuleMain),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// run blocks until the control loop finishes.
func (a *app) run() {
	defer close(a.done)

	if err := a.setup(); err != nil {
		a.logger.Error("Startup failed", "error", err)
		a.cleanup()
		os.Exit(1)
	}

	a.logger.Info("Adjust direction of LEDs with mouse")
	a.logger.Info("Adjust speed with keyboard")

	a.startBackground()

	a.notifier.Ready()
	a.notifier.Status(fmt.Sprintf("Rotating %d LEDs via %s", a.opts.Leds, a.sink.Name()))

	err := a.loop.Run(a.ctx)
	switch {
	case err == nil:
		a.logger.Info("Tick limit reached", "ticks", a.loop.Snapshot().Tick)
	case errors.Is(err, context.Canceled):
	default:
		a.logger.Error("Control loop failed", "error", err)
	}

	a.cleanup()
}

// stop is called on SIGINT/SIGTERM.
func (a *app) stop() {
	a.logger.Info("Shutting down")
	if a.notifier != nil {
		a.notifier.Stopping()
	}
	a.cancel()

	select {
	case <-a.done:
	case <-time.After(shutdownTimeout):
		a.logger.Warn("Timed out waiting for shutdown")
	}
}

func (a *app) setup() error {
	a.bus = events.New()
	a.notifier = systemd.NewNotifier(logging.GetLogger(logging.ModuleMain))
	a.hookLogEvents()

	if err := a.openSink(); err != nil {
		return err
	}
	if err := a.openPointer(); err != nil {
		return err
	}
	if err := a.openRateSource(); err != nil {
		return err
	}

	edge, err := parseModeToggle(a.opts.ModeToggle)
	if err != nil {
		return err
	}

	a.cell = rate.NewCell(int64(a.opts.Rate))
	ticks := a.opts.Ticks
	if ticks < 0 {
		ticks = 0
	}
	a.loop, err = control.New(control.Options{
		Sink:       a.sink,
		Pointer:    a.pointer,
		Rate:       a.cell,
		Width:      a.opts.Leds,
		MinRate:    int64(a.opts.MinRate),
		MaxRate:    int64(a.opts.MaxRate),
		EdgeToggle: edge,
		MaxTicks:   uint64(ticks),
		Bus:        a.bus,
		Logger:     logging.GetLogger(logging.ModuleControl),
	})
	if err != nil {
		return fmt.Errorf("failed to create control loop: %w", err)
	}

	a.recorder = metrics.NewRecorder(a.bus, logging.GetLogger(logging.ModuleMetrics))

	if a.opts.Listen != "" {
		a.exporter = exporters.NewSSEExporter(a.bus)
		a.server = api.NewServer(&api.Options{
			AuthUsername:      a.opts.AuthUsername,
			AuthPassword:      a.opts.AuthPassword,
			EventBus:          a.bus,
			State:             a.loop,
			Rate:              a.cell,
			SinkName:          a.sink.Name(),
			Pointer:           a.opts.Pointer,
			RateSource:        a.rateName,
			MinRateMs:         int64(a.opts.MinRate),
			MaxRateMs:         int64(a.opts.MaxRate),
			PrometheusHandler: exporters.HTTPHandler(),
		})
	}

	if a.opts.Config != "" {
		a.watchLogLevels()
	}
	return nil
}

func (a *app) openSink() error {
	sink, err := led.New(led.Config{
		Backend:   a.opts.Sink,
		SysfsLEDs: config.SplitList(a.opts.SysfsLeds),
		DevMem:    led.DefaultDevMemConfig(),
	}, logging.GetLogger(logging.ModuleLED))
	if err != nil {
		return fmt.Errorf("failed to open LED sink: %w", err)
	}
	a.sink = sink
	a.closers = append(a.closers, sink)
	a.logger.Info("LED sink ready", "sink", sink.Name(), "leds", a.opts.Leds)
	return nil
}

func (a *app) openPointer() error {
	if a.opts.Pointer == noPointer || a.opts.Pointer == "" {
		a.logger.Info("Pointer disabled")
		a.pointer = pointer.None{}
		return nil
	}
	dev, err := pointer.Open(a.opts.Pointer)
	if err != nil {
		return fmt.Errorf("failed to open pointer device: %w", err)
	}
	a.pointer = dev
	a.closers = append(a.closers, dev)
	logging.GetLogger(logging.ModulePointer).Info("Pointer device open", "path", dev.Path())
	return nil
}

func (a *app) openRateSource() error {
	if a.opts.RateInput == stdinRateInput || a.opts.RateInput == "" {
		a.rateSrc = rate.NewTokenReader(os.Stdin, "stdin")
		a.rateName = "stdin"
		return nil
	}
	src, err := rate.NewFileSource(a.ctx, a.opts.RateInput, rateFileDebounce, logging.GetLogger(logging.ModuleRate))
	if err != nil {
		return fmt.Errorf("failed to watch rate file: %w", err)
	}
	a.rateSrc = src
	a.rateName = src.Name()
	a.closers = append(a.closers, src)
	return nil
}

func parseModeToggle(value string) (bool, error) {
	switch value {
	case toggleLevel, "":
		return false, nil
	case toggleEdge:
		return true, nil
	default:
		return false, fmt.Errorf("invalid mode toggle %q (want %s or %s)", value, toggleLevel, toggleEdge)
	}
}

// hookLogEvents forwards every log record to SSE subscribers.
func (a *app) hookLogEvents() {
	bus := a.bus
	logging.SetLogCallback(func(entry logging.LogEntry) {
		bus.Publish(events.LogEntryEvent{
			Seq:        entry.Seq,
			Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
			Level:      entry.Level,
			Module:     entry.Module,
			Message:    entry.Message,
			Attributes: entry.Attributes,
		})
	})
}

// watchLogLevels reapplies log levels whenever the config file changes.
// Values set on the command line or environment stay as the baseline.
func (a *app) watchLogLevels() {
	logger := logging.GetLogger(logging.ModuleConfig)
	a.watcher = config.NewWatcher(a.opts.Config, config.LoadLoggingConfig, logger)
	a.watcher.OnReload(func(file logging.Config) {
		merged := mergeLogging(a.opts.loggingConfig(), file)
		logging.ApplyLevels(merged)
		logger.Info("Log levels reloaded", "level", merged.Level, "modules", merged.Modules)
	})
}

// mergeLogging overlays non-empty levels from override onto base.
func mergeLogging(base, override logging.Config) logging.Config {
	out := logging.Config{
		Level:   base.Level,
		Format:  base.Format,
		Modules: make(map[string]string, len(base.Modules)+len(override.Modules)),
	}
	if override.Level != "" {
		out.Level = override.Level
	}
	for module, level := range base.Modules {
		out.Modules[module] = level
	}
	for module, level := range override.Modules {
		if level != "" {
			out.Modules[module] = level
		}
	}
	return out
}

func (a *app) startBackground() {
	a.recorder.Start()

	// Not in the group: a read from stdin cannot be interrupted, so shutdown
	// does not wait for it.
	worker := rate.NewWorker(a.rateSrc, a.rateName, a.cell, a.bus, logging.GetLogger(logging.ModuleRate))
	go func() {
		if err := worker.Run(a.ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("Rate input failed", "error", err)
		}
	}()

	if a.watcher != nil {
		if err := a.watcher.Start(a.ctx); err != nil {
			a.logger.Warn("Failed to watch config file", "path", a.opts.Config, "error", err)
			a.watcher = nil
		}
	}

	if a.server != nil {
		a.exporter.Start(a.ctx)
		a.group.Go(func() error {
			err := a.server.Start(a.opts.Listen)
			if err != nil {
				logging.GetLogger(logging.ModuleHTTP).Error("HTTP server failed", "addr", a.opts.Listen, "error", err)
			}
			return err
		})
	}

	a.group.Go(func() error {
		a.notifier.RunWatchdog(a.ctx, a.healthy)
		return nil
	})
}

func (a *app) healthy() bool {
	return loopHealthy(a.loop.Snapshot(), a.loop.SleepingMs(), time.Now())
}

// loopHealthy reports whether the loop has ticked recently enough, given
// both the last completed sleep and the one in progress.
func loopHealthy(snap control.Snapshot, sleepingMs int64, now time.Time) bool {
	rateMs := max(snap.RateMs, sleepingMs)
	limit := time.Duration(rateMs)*time.Millisecond*2 + healthGrace
	return now.Sub(snap.UpdatedAt) < limit
}

func (a *app) cleanup() {
	a.stopOnce.Do(func() {
		a.cancel()

		if a.server != nil {
			if err := a.server.Stop(); err != nil {
				a.logger.Warn("Error stopping HTTP server", "error", err)
			}
		}
		if a.exporter != nil {
			a.exporter.Stop()
		}
		if a.watcher != nil {
			if err := a.watcher.Stop(); err != nil {
				a.logger.Warn("Error stopping config watcher", "error", err)
			}
		}
		if a.recorder != nil {
			a.recorder.Stop()
		}

		var errs []error
		errs = append(errs, a.group.Wait())
		for i := len(a.closers) - 1; i >= 0; i-- {
			errs = append(errs, a.closers[i].Close())
		}
		if err := errors.Join(errs...); err != nil {
			a.logger.Warn("Error during shutdown", "error", err)
		}
		logging.SetLogCallback(nil)
	})
}

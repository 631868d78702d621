package led

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Backend names accepted by New.
const (
	BackendAuto   = "auto"
	BackendDevMem = "devmem"
	BackendSysfs  = "sysfs"
	BackendLog    = "log"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by New for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown LED backend")

// Config selects and configures a sink.
type Config struct {
	Backend string
	// SysfsLEDs lists /sys/class/leds names, lowest register bit first.
	SysfsLEDs []string
	// SysfsRoot overrides /sys/class/leds.
	SysfsRoot string
	DevMem    DevMemConfig
}

// New opens the sink named by cfg.Backend. "auto" picks devmem on a DE1-SoC,
// sysfs when LED names are configured and the log sink otherwise.
func New(cfg Config, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == "" || backend == BackendAuto {
		backend = detectBackend(cfg, logger)
	}

	switch backend {
	case BackendDevMem:
		return OpenDevMem(cfg.DevMem)
	case BackendSysfs:
		return newSysfs(cfg.SysfsRoot, cfg.SysfsLEDs)
	case BackendLog:
		return newLogSink(logger), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func detectBackend(cfg Config, logger *slog.Logger) string {
	boardModel := detectBoard(deviceTreeModelPath)
	logger.Info("Detecting board for LED register", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "DE1-SoC"), strings.Contains(boardModel, "Cyclone V"):
		logger.Info("Detected Cyclone V SoC, using /dev/mem register sink")
		return BackendDevMem
	case len(cfg.SysfsLEDs) > 0:
		logger.Info("Using sysfs LED sink", "leds", len(cfg.SysfsLEDs))
		return BackendSysfs
	default:
		logger.Info("No LED register detected, using log sink", "board_model", boardModel)
		return BackendLog
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	model := strings.TrimRight(string(data), "\x00")
	return model
}

package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
)

// LoadLoggingConfig reads the [logging] table of a TOML file. Module levels
// may be given either as keys of [logging.modules] or directly under
// [logging], e.g. `control = "debug"`.
func LoadLoggingConfig(path string) (logging.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return logging.Config{}, err
	}

	var doc struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return logging.Config{}, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}

	cfg := logging.Config{Modules: make(map[string]string)}
	for key, value := range doc.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range v {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}
	return cfg, nil
}

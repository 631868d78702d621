package main

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/cmd"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/config"
	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:""`

	// LED settings
	Leds      int    `help:"Number of LEDs in the rotation (1-32)" default:"10" toml:"leds.count" env:"LEDS"`
	Sink      string `help:"LED register backend (auto, devmem, sysfs, log, memory)" default:"auto" toml:"leds.sink" env:"SINK"`
	SysfsLeds string `help:"Comma-separated /sys/class/leds names, lowest bit first" default:"" toml:"leds.sysfs" env:"SYSFS_LEDS"`

	// Rate settings
	Rate      int    `help:"Initial tick period in milliseconds" default:"100" toml:"rate.initial" env:"RATE"`
	MinRate   int    `help:"Lower clamp for the tick period in milliseconds" default:"1" toml:"rate.min" env:"MIN_RATE"`
	MaxRate   int    `help:"Upper clamp for the tick period in milliseconds" default:"60000" toml:"rate.max" env:"MAX_RATE"`
	RateInput string `help:"Rate stream: '-' for stdin or a file to watch" default:"-" toml:"rate.input" env:"RATE_INPUT"`

	// Pointer settings
	Pointer    string `help:"Pointer device, or 'none'" default:"/dev/input/mice" toml:"pointer.device" env:"POINTER"`
	ModeToggle string `help:"Middle button toggle (level, edge)" default:"level" toml:"pointer.mode_toggle" env:"MODE_TOGGLE"`

	// Loop settings
	Ticks int `help:"Stop after this many ticks (0 runs until interrupted)" default:"0" toml:"loop.ticks" env:"TICKS"`

	// HTTP settings
	Listen       string `help:"Status API address, empty disables it" default:"" toml:"http.listen" env:"HTTP_LISTEN"`
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json, color)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingControl string `help:"Control loop logging level" default:"" toml:"logging.control" env:"LOGGING_CONTROL"`
	LoggingRate    string `help:"Rate input logging level" default:"" toml:"logging.rate" env:"LOGGING_RATE"`
	LoggingPointer string `help:"Pointer logging level" default:"" toml:"logging.pointer" env:"LOGGING_POINTER"`
	LoggingLED     string `help:"LED sink logging level" default:"" toml:"logging.led" env:"LOGGING_LED"`
	LoggingAPI     string `help:"API logging level" default:"" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"" toml:"logging.http" env:"LOGGING_HTTP"`
}

// loggingConfig maps the flat logging options onto logging.Config. Empty
// module levels fall back to the global level.
func (o *Options) loggingConfig() logging.Config {
	modules := map[string]string{
		logging.ModuleControl: o.LoggingControl,
		logging.ModuleRate:    o.LoggingRate,
		logging.ModulePointer: o.LoggingPointer,
		logging.ModuleLED:     o.LoggingLED,
		logging.ModuleAPI:     o.LoggingAPI,
		logging.ModuleHTTP:    o.LoggingHTTP,
	}
	for module, level := range modules {
		if level == "" {
			delete(modules, module)
		}
	}
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Modules: modules,
	}
}

// startupLogging adds module levels that only the config file's
// [logging.modules] table sets. Flags and flat keys keep precedence.
func startupLogging(opts *Options) logging.Config {
	cfg := opts.loggingConfig()
	if opts.Config == "" {
		return cfg
	}
	file, err := config.LoadLoggingConfig(opts.Config)
	if err != nil {
		return cfg
	}
	for module, level := range file.Modules {
		if _, set := cfg.Modules[module]; !set && level != "" {
			cfg.Modules[module] = level
		}
	}
	return cfg
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Runs before subcommands too, so only cheap setup belongs here.
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(startupLogging(opts))

		a := newApp(opts)
		hooks.OnStart(a.run)
		hooks.OnStop(a.stop)
	})

	cli.Root().Use = "ledspin"
	cli.Root().Short = "Rotate a lit LED, steered by a mouse and paced by a rate stream"
	cli.Root().AddCommand(cmd.CreateDecodeCmd())
	cli.Root().AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}

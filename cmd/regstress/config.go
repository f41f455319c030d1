package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/saylorsolutions/intercept/events"
	"github.com/saylorsolutions/intercept/internal/logx"
	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const envPrefix = "REGSTRESS_"

var ErrConfig = errors.New("invalid configuration")

// Config controls a stress run.
type Config struct {
	Buses       int           `yaml:"buses"`
	Handlers    int           `yaml:"handlers"`
	Dispatches  int           `yaml:"dispatches"`
	Workers     int           `yaml:"workers"`
	Policy      string        `yaml:"policy"`
	Churn       bool          `yaml:"churn"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Linger      time.Duration `yaml:"linger"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
	LogFile     string        `yaml:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		Buses:      4,
		Handlers:   8,
		Dispatches: 10_000,
		Workers:    4,
		Policy:     events.SnapshotDispatch.String(),
		LogLevel:   "info",
		LogFormat:  logx.FormatAuto,
	}
}

// LoadFile overlays settings from a YAML file. Keys missing from the file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing '%s': %v", ErrConfig, path, err)
	}
	return nil
}

// ApplyEnv overlays settings from REGSTRESS_* environment variables.
// Values that are empty or can't be parsed are ignored.
func (c *Config) ApplyEnv() {
	c.Buses = int(envInt(envPrefix+"BUSES", int64(c.Buses)))
	c.Handlers = int(envInt(envPrefix+"HANDLERS", int64(c.Handlers)))
	c.Dispatches = int(envInt(envPrefix+"DISPATCHES", int64(c.Dispatches)))
	c.Workers = int(envInt(envPrefix+"WORKERS", int64(c.Workers)))
	c.Policy = envVal(envPrefix+"POLICY", c.Policy)
	c.Churn = envBool(envPrefix+"CHURN", c.Churn)
	c.MetricsAddr = envVal(envPrefix+"METRICS_ADDR", c.MetricsAddr)
	c.Linger = envDuration(envPrefix+"LINGER", c.Linger)
	c.LogLevel = envVal(envPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = envVal(envPrefix+"LOG_FORMAT", c.LogFormat)
	c.LogFile = envVal(envPrefix+"LOG_FILE", c.LogFile)
}

// BindFlags registers a flag for each setting, using the current values as defaults.
func (c *Config) BindFlags(flags *flag.FlagSet) {
	flags.IntVar(&c.Buses, "buses", c.Buses, "Number of buses to create")
	flags.IntVar(&c.Handlers, "handlers", c.Handlers, "Handlers per bus, per phase")
	flags.IntVar(&c.Dispatches, "dispatches", c.Dispatches, "Events dispatched per bus")
	flags.IntVar(&c.Workers, "workers", c.Workers, "Dispatching goroutines per bus")
	flags.StringVar(&c.Policy, "policy", c.Policy, "Dispatch policy, either 'snapshot' or 'hold'")
	flags.BoolVar(&c.Churn, "churn", c.Churn, "Subscribe and dispose extra handlers while dispatching")
	flags.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address, e.g. ':9090'")
	flags.DurationVar(&c.Linger, "linger", c.Linger, "Keep serving metrics this long after the run completes")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, or error")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: auto, console, text, or json")
	flags.StringVar(&c.LogFile, "log-file", c.LogFile, "Also append JSON logs to this file")
}

func (c Config) Validate() error {
	var err error
	if c.Buses < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: buses must be at least 1", ErrConfig))
	}
	if c.Handlers < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: handlers must not be negative", ErrConfig))
	}
	if c.Dispatches < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: dispatches must not be negative", ErrConfig))
	}
	if c.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("%w: workers must be at least 1", ErrConfig))
	}
	if c.Linger < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: linger must not be negative", ErrConfig))
	}
	if _, perr := events.ParseDispatchPolicy(c.Policy); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, perr := logx.ParseLevel(c.LogLevel); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: %v", ErrConfig, perr))
	}
	switch c.LogFormat {
	case "", logx.FormatAuto, logx.FormatConsole, logx.FormatText, logx.FormatJSON:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %w '%s'", ErrConfig, logx.ErrUnknownFormat, c.LogFormat))
	}
	return err
}

// DispatchPolicy must only be called after Validate succeeds.
func (c Config) DispatchPolicy() events.DispatchPolicy {
	policy, _ := events.ParseDispatchPolicy(c.Policy)
	return policy
}

func (c Config) Level() slog.Level {
	level, _ := logx.ParseLevel(c.LogLevel)
	return level
}

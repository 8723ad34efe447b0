package main

import (
	"github.com/hashicorp/go-multierror"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ffi"
	"github.com/wippyai/ownership/host"
	"github.com/wippyai/ownership/ptr"
	"github.com/wippyai/ownership/resource"
)

type options struct {
	configPath  string
	logLevel    string
	metricsAddr string
	debug       bool

	iterations  int      // leak: objects per kind
	kinds       []string // leak: handle kinds to run
	goroutines  int      // stress: concurrent owners per round
	rounds      int      // stress: rounds
	interactive bool     // stress: live TUI

	cfg config
	log *zap.Logger
}

func NewOptions() *options {
	return &options{cfg: defaultConfig()}
}

// AddFlags registers the flags shared by every command.
func (o *options) AddFlags(fs *flag.FlagSet) {
	d := defaultConfig()
	fs.StringVar(&o.configPath, "config", "", "Path to a TOML config file")
	fs.StringVar(&o.logLevel, "log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	fs.BoolVar(&o.debug, "debug", false, "Panic on contract violations and report leaked handles")
}

func (o *options) addLeakFlags(fs *flag.FlagSet) {
	d := defaultConfig()
	fs.IntVarP(&o.iterations, "iterations", "n", d.LeakIterations, "Objects to create and drop per kind")
	fs.StringSliceVar(&o.kinds, "kinds", nil, "Handle kinds to run (scope, ref, weak)")
}

func (o *options) addStressFlags(fs *flag.FlagSet) {
	d := defaultConfig()
	fs.IntVarP(&o.goroutines, "goroutines", "g", d.StressGoroutines, "Concurrent owners per round")
	fs.IntVarP(&o.rounds, "rounds", "r", d.StressRounds, "Number of rounds")
	fs.BoolVarP(&o.interactive, "interactive", "i", false, "Show a live progress view")
}

// Complete resolves the configuration: defaults, then the config file, then
// flags that were set explicitly.
func (o *options) Complete(fs *flag.FlagSet) error {
	cfg := defaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = loadConfig(o.configPath, cfg); err != nil {
			return err
		}
	}

	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	if fs.Changed("debug") {
		cfg.Debug = o.debug
	}
	if fs.Changed("iterations") {
		cfg.LeakIterations = o.iterations
	}
	if fs.Changed("kinds") {
		kinds, err := parseKinds(o.kinds)
		if err != nil {
			return err
		}
		cfg.LeakKinds = kinds
	}
	if fs.Changed("goroutines") {
		cfg.StressGoroutines = o.goroutines
	}
	if fs.Changed("rounds") {
		cfg.StressRounds = o.rounds
	}
	o.cfg = cfg

	if err := o.validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	o.log = log
	ptr.SetLogger(log.Named("ptr"))
	resource.SetLogger(log.Named("resource"))
	host.SetLogger(log.Named("host"))
	ffi.SetLogger(log.Named("ffi"))
	if cfg.Debug {
		ptr.SetDebug(true)
	}
	return nil
}

func (o *options) validate() error {
	var result *multierror.Error
	if _, err := zapcore.ParseLevel(o.cfg.LogLevel); err != nil {
		result = multierror.Append(result, errors.InvalidInput(errors.PhaseConfig, "log level: "+err.Error()))
	}
	if o.cfg.LeakIterations < 0 {
		result = multierror.Append(result, errors.InvalidInput(errors.PhaseConfig, "iterations must not be negative"))
	}
	if len(o.cfg.LeakKinds) == 0 {
		result = multierror.Append(result, errors.InvalidInput(errors.PhaseConfig, "at least one leak kind is required"))
	}
	if o.cfg.StressGoroutines <= 0 {
		result = multierror.Append(result, errors.InvalidInput(errors.PhaseConfig, "goroutines must be positive"))
	}
	if o.cfg.StressRounds <= 0 {
		result = multierror.Append(result, errors.InvalidInput(errors.PhaseConfig, "rounds must be positive"))
	}
	return result.ErrorOrNil()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "log level: "+err.Error())
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

package main

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/internal/scenario"
)

type fileConfig struct {
	LogLevel    string `toml:"log_level"`
	MetricsAddr string `toml:"metrics_addr"`
	Debug       bool   `toml:"debug"`
	Leak        struct {
		Iterations int      `toml:"iterations"`
		Kinds      []string `toml:"kinds"`
	} `toml:"leak"`
	Stress struct {
		Goroutines int `toml:"goroutines"`
		Rounds     int `toml:"rounds"`
	} `toml:"stress"`
}

// config is the resolved ownctl configuration.
type config struct {
	LogLevel         string
	MetricsAddr      string
	Debug            bool
	LeakIterations   int
	LeakKinds        []scenario.LeakKind
	StressGoroutines int
	StressRounds     int
}

func defaultConfig() config {
	return config{
		LogLevel:         "info",
		LeakIterations:   100000,
		LeakKinds:        append([]scenario.LeakKind(nil), scenario.LeakKinds...),
		StressGoroutines: 8,
		StressRounds:     1000,
	}
}

// loadConfig overlays the keys present in the TOML file at path onto cfg.
func loadConfig(path string, cfg config) (config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load "+path)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("leak", "iterations") {
		cfg.LeakIterations = raw.Leak.Iterations
	}
	if meta.IsDefined("leak", "kinds") {
		kinds, err := parseKinds(raw.Leak.Kinds)
		if err != nil {
			return config{}, err
		}
		cfg.LeakKinds = kinds
	}
	if meta.IsDefined("stress", "goroutines") {
		cfg.StressGoroutines = raw.Stress.Goroutines
	}
	if meta.IsDefined("stress", "rounds") {
		cfg.StressRounds = raw.Stress.Rounds
	}

	return cfg, nil
}

func parseKinds(in []string) ([]scenario.LeakKind, error) {
	out := make([]scenario.LeakKind, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		k, err := scenario.ParseLeakKind(s)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/proger/faeton/internal/dem"
)

// EnvConfig holds process-level settings read from environment
// variables.
type EnvConfig struct {
	// TuningPath points at an optional classifier tuning JSON file.
	TuningPath string `env:"FAETON_TUNING"`
}

// FromEnv parses settings from the process environment.
func FromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ClassifierLimits resolves classifier limits from the environment.
// With FAETON_TUNING unset the stock limits apply.
func ClassifierLimits() (dem.Limits, error) {
	cfg, err := FromEnv()
	if err != nil {
		return dem.Limits{}, err
	}
	if cfg.TuningPath == "" {
		return dem.DefaultLimits(), nil
	}

	tuning, err := LoadTuningConfig(cfg.TuningPath)
	if err != nil {
		return dem.Limits{}, err
	}
	return tuning.Limits(), nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/convobench/internal/models"
)

// DefaultRunConfig returns a RunConfig with default values.
func DefaultRunConfig() models.RunConfig {
	return models.RunConfig{
		NumTrials:        3,
		MaxSteps:         200,
		MaxErrors:        10,
		MaxConcurrency:   5,
		ActorTimeoutSec:  60.0,
		ToolTimeoutSec:   30.0,
		SuccessThreshold: 1.0,
	}
}

// LoadRunConfig loads and parses a run.yaml file.
func LoadRunConfig(path string) (models.RunConfig, error) {
	cfg := DefaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config: %w", err)
	}

	if cfg.Domain == "" {
		return cfg, fmt.Errorf("run config: 'domain' is required")
	}

	// Apply defaults for missing values
	if cfg.NumTrials == 0 {
		cfg.NumTrials = 3
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 200
	}
	if cfg.MaxErrors == 0 {
		cfg.MaxErrors = 10
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.ActorTimeoutSec == 0 {
		cfg.ActorTimeoutSec = 60.0
	}
	if cfg.ToolTimeoutSec == 0 {
		cfg.ToolTimeoutSec = 30.0
	}
	if cfg.SuccessThreshold == 0 {
		cfg.SuccessThreshold = 1.0
	}

	return cfg, nil
}

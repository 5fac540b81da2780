package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SourcePath string // .hcl design files
	Top        string // top-level task name
	OutDir     string // output directory for generated artifacts

	// RelayStages is the pipeline stage count applied when channel hardware
	// is rendered; 0 disables relay insertion.
	RelayStages int

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.SourcePath == "" {
		return nil, errors.New("SourcePath is a required configuration field and cannot be empty")
	}
	if cfg.Top == "" {
		return nil, errors.New("Top is a required configuration field and cannot be empty")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "build"
	}
	if cfg.RelayStages < 0 {
		return nil, errors.New("RelayStages must not be negative")
	}
	return &cfg, nil
}

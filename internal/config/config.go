// Package config loads the server configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

// Config is the server configuration.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Retention RetentionConfig `yaml:"retention"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// PipelineConfig holds the defaults applied to requests that omit them.
type PipelineConfig struct {
	DefaultStepDelay time.Duration `yaml:"defaultStepDelay"`
	RetryStepDelay   time.Duration `yaml:"retryStepDelay"`
	DefaultProject   string        `yaml:"defaultProject"`
}

// RetentionConfig bounds the in-memory task store.
type RetentionConfig struct {
	// MaxTasks is the task store capacity, 0 keeps every task.
	MaxTasks int `yaml:"maxTasks"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics when set.
	ListenAddr string `yaml:"listenAddr"`
	Path       string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DefaultStepDelay: pipeline.DefaultStepDelay,
			RetryStepDelay:   pipeline.DefaultRetryStepDelay,
			DefaultProject:   pipeline.DefaultProject,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"pipeline.defaultStepDelay": c.Pipeline.DefaultStepDelay,
		"pipeline.retryStepDelay":   c.Pipeline.RetryStepDelay,
	} {
		if d < pipeline.MinStepDelay || d > pipeline.MaxStepDelay {
			errs = append(errs, fmt.Errorf("%s %s outside [%s, %s]", name, d, pipeline.MinStepDelay, pipeline.MaxStepDelay))
		}
	}
	if c.Pipeline.DefaultProject == "" {
		errs = append(errs, errors.New("pipeline.defaultProject is required"))
	}
	if c.Retention.MaxTasks < 0 {
		errs = append(errs, errors.New("retention.maxTasks can't be negative"))
	}
	if c.Metrics.ListenAddr != "" && c.Metrics.Path == "" {
		errs = append(errs, errors.New("metrics.path is required when metrics.listenAddr is set"))
	}
	return errors.Join(errs...)
}

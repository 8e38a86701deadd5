package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
)

// EngineConfig is the configuration for an Engine.
type EngineConfig struct {
	// Store is shared by every component. Required.
	Store            *TaskStore
	Sleeper          Sleeper
	Metrics          MetricsRecorder
	Now              func() time.Time
	BaseContext      context.Context
	DefaultStepDelay time.Duration
	RetryStepDelay   time.Duration
	DefaultProject   string
	Logger           log.Logger
}

// Engine bundles the components operating on one task store.
type Engine struct {
	Store    *TaskStore
	Runner   *Runner
	Reporter *Reporter
	Retries  *RetryCoordinator
}

// NewEngine wires a runner, reporter and retry coordinator over cfg.Store.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("invalid config: store is required")
	}

	runner, err := NewRunner(RunnerConfig{
		Store:            cfg.Store,
		Sleeper:          cfg.Sleeper,
		Metrics:          cfg.Metrics,
		Now:              cfg.Now,
		BaseContext:      cfg.BaseContext,
		DefaultStepDelay: cfg.DefaultStepDelay,
		DefaultProject:   cfg.DefaultProject,
		Logger:           cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create runner: %w", err)
	}

	reporter, err := NewReporter(ReporterConfig{
		Store:  cfg.Store,
		Now:    cfg.Now,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create reporter: %w", err)
	}

	retries, err := NewRetryCoordinator(RetryCoordinatorConfig{
		Store:            cfg.Store,
		Runner:           runner,
		Now:              cfg.Now,
		DefaultStepDelay: cfg.RetryStepDelay,
		Logger:           cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create retry coordinator: %w", err)
	}

	return &Engine{
		Store:    cfg.Store,
		Runner:   runner,
		Reporter: reporter,
		Retries:  retries,
	}, nil
}

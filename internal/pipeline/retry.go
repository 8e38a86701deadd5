package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
)

// RetryCoordinatorConfig is the configuration for the retry coordinator.
type RetryCoordinatorConfig struct {
	Store  *TaskStore
	Runner *Runner
	Now    func() time.Time
	// DefaultStepDelay is used when a retry request has no delay.
	DefaultStepDelay time.Duration
	Logger           log.Logger
}

func (c *RetryCoordinatorConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.DefaultStepDelay == 0 {
		c.DefaultStepDelay = DefaultRetryStepDelay
	}
	if _, err := resolveStepDelay(c.DefaultStepDelay, 0); err != nil {
		return fmt.Errorf("default step delay: %w", err)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.RetryCoordinator"})
	return nil
}

// RetryCoordinator derives new tasks from terminated ones.
type RetryCoordinator struct {
	store        *TaskStore
	runner       *Runner
	now          func() time.Time
	defaultDelay time.Duration
	logger       log.Logger
}

// NewRetryCoordinator creates a new retry coordinator.
func NewRetryCoordinator(cfg RetryCoordinatorConfig) (*RetryCoordinator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &RetryCoordinator{
		store:        cfg.Store,
		runner:       cfg.Runner,
		now:          cfg.Now,
		defaultDelay: cfg.DefaultStepDelay,
		logger:       cfg.Logger,
	}, nil
}

// RetryRequest represents the retry parameters.
type RetryRequest struct {
	TaskID string
	// Mode defaults to RetryResume.
	Mode RetryMode
	// FixFailingStep marks the step right after the original's stopping
	// point as fixed in the derived task's log. It does not change control
	// flow: retries never inject failure.
	FixFailingStep bool
	StepDelay      time.Duration
}

// RetryResult describes the derived task.
type RetryResult struct {
	NewTaskID      string
	OriginalTaskID string
	Mode           RetryMode
	ResumeFromStep int
	Total          int
	FixFailingStep bool
}

// Retry creates a new task linked to a terminated one and runs the remaining
// steps. The original task is never mutated.
func (c *RetryCoordinator) Retry(req RetryRequest) (RetryResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = RetryResume
	}
	if mode != RetryResume && mode != RetryRestart {
		return RetryResult{}, fmt.Errorf("unknown retry mode %q: %w", mode, ErrInvalidArgument)
	}
	delay, err := resolveStepDelay(req.StepDelay, c.defaultDelay)
	if err != nil {
		return RetryResult{}, err
	}

	orig, ok := c.store.Snapshot(req.TaskID)
	if !ok {
		return RetryResult{}, fmt.Errorf("no task with id %q: %w", req.TaskID, ErrTaskNotFound)
	}
	if orig.Status == StatusRunning {
		return RetryResult{}, fmt.Errorf("task %q is still running, cancel it first: %w", orig.ID, ErrInvalidState)
	}

	baseline := 0
	if mode == RetryResume {
		baseline = orig.Completed
	}

	now := c.now()
	entries := []LogEntry{{
		At:   now,
		Kind: EntryInfo,
		Text: fmt.Sprintf("Retry of %s (mode: %s, startStep: %d)", orig.ID, mode, baseline+1),
	}}
	if mode == RetryResume {
		for _, e := range orig.Log {
			if e.Kind != EntryStep {
				continue
			}
			e.Carried = true
			entries = append(entries, e)
		}
	}

	t := &Task{
		ID:        newRetryID(orig.ID),
		Project:   orig.Project,
		Lineage:   orig.ID,
		RetryMode: mode,
		StepDelay: delay,
		Status:    StatusRunning,
		Total:     TotalSteps,
		Completed: baseline,
		Log:       entries,
		StartedAt: now,
	}
	exec := execution{
		from:         baseline + 1,
		delay:        delay,
		completeText: "✓ Pipeline completed on retry",
		origin:       OriginRetry,
	}
	if req.FixFailingStep {
		exec.annotateStep = orig.Completed + 1
	}
	if err := c.runner.launch(t, exec); err != nil {
		return RetryResult{}, err
	}

	c.logger.Infof("Retrying %s as %s (mode %s, from step %d)", orig.ID, t.ID, mode, baseline+1)
	return RetryResult{
		NewTaskID:      t.ID,
		OriginalTaskID: orig.ID,
		Mode:           mode,
		ResumeFromStep: baseline + 1,
		Total:          TotalSteps,
		FixFailingStep: req.FixFailingStep,
	}, nil
}

// newRetryID derives a time-sortable id from the parent's.
func newRetryID(parent string) string {
	return parent + "-retry-" + strings.ToLower(ulid.Make().String())
}

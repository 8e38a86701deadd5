package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
)

// RunnerConfig is the configuration for the pipeline runner.
type RunnerConfig struct {
	Store   *TaskStore
	Sleeper Sleeper
	Metrics MetricsRecorder
	Now     func() time.Time
	// BaseContext is the parent of every task flow's context. Cancelling it
	// stops all flows at their next step boundary without changing status.
	BaseContext      context.Context
	DefaultStepDelay time.Duration
	DefaultProject   string
	Logger           log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Sleeper == nil {
		c.Sleeper = RealSleeper
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetrics
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	if c.DefaultStepDelay == 0 {
		c.DefaultStepDelay = DefaultStepDelay
	}
	if _, err := resolveStepDelay(c.DefaultStepDelay, 0); err != nil {
		return fmt.Errorf("default step delay: %w", err)
	}
	if c.DefaultProject == "" {
		c.DefaultProject = DefaultProject
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.Runner"})
	return nil
}

// Runner creates tasks and drives them through the step sequence.
type Runner struct {
	store        *TaskStore
	sleeper      Sleeper
	metrics      MetricsRecorder
	now          func() time.Time
	baseCtx      context.Context
	defaultDelay time.Duration
	project      string
	logger       log.Logger
}

// NewRunner creates a new pipeline runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Runner{
		store:        cfg.Store,
		sleeper:      cfg.Sleeper,
		metrics:      cfg.Metrics,
		now:          cfg.Now,
		baseCtx:      cfg.BaseContext,
		defaultDelay: cfg.DefaultStepDelay,
		project:      cfg.DefaultProject,
		logger:       cfg.Logger,
	}, nil
}

// StartRequest represents the pipeline start parameters.
type StartRequest struct {
	// Project labels the run. Empty uses the configured default.
	Project string
	// StepDelay is the simulated duration of every step. Zero uses the
	// configured default; otherwise it must lie in [MinStepDelay, MaxStepDelay].
	StepDelay time.Duration
	// FailAtStep makes the 1-based step fail deterministically. 0 never fails.
	FailAtStep int
}

// Start creates a running task and launches its execution flow. It returns as
// soon as the task is registered; an injected failure only shows up later in
// the task's status.
func (r *Runner) Start(req StartRequest) (string, error) {
	delay, err := resolveStepDelay(req.StepDelay, r.defaultDelay)
	if err != nil {
		return "", err
	}
	if req.FailAtStep < 0 || req.FailAtStep > TotalSteps {
		return "", fmt.Errorf("fail at step %d outside [0, %d]: %w", req.FailAtStep, TotalSteps, ErrInvalidArgument)
	}
	project := req.Project
	if project == "" {
		project = r.project
	}

	now := r.now()
	t := &Task{
		ID:         uuid.NewString(),
		Project:    project,
		StepDelay:  delay,
		FailAtStep: req.FailAtStep,
		Status:     StatusRunning,
		Total:      TotalSteps,
		Log:        []LogEntry{{At: now, Kind: EntryInfo, Text: "Pipeline started for " + project}},
		StartedAt:  now,
	}
	err = r.launch(t, execution{
		from:         1,
		delay:        delay,
		failAt:       req.FailAtStep,
		completeText: "✓ Pipeline completed successfully",
		origin:       OriginStart,
	})
	if err != nil {
		return "", err
	}

	r.logger.Infof("Started pipeline %s for %s (delay %s, fail at %d)", t.ID, project, delay, req.FailAtStep)
	return t.ID, nil
}

// CancelResult reports where a cancelled task stopped.
type CancelResult struct {
	TaskID    string
	StoppedAt int // completed steps at cancel time
	Total     int
	Reason    string
}

// Cancel marks a running task as cancelled. The task's execution flow stops
// at its next step boundary; completed is frozen at its current value.
func (r *Runner) Cancel(id, reason string) (CancelResult, error) {
	if reason == "" {
		reason = DefaultCancelReason
	}
	t, err := r.store.SetCancelled(id, reason)
	if err != nil {
		return CancelResult{}, err
	}
	r.metrics.TaskFinished(StatusCancelled, t.FinishedAt.Sub(t.StartedAt))
	r.logger.Infof("Cancelled task %s at %d/%d: %s", id, t.Completed, t.Total, reason)

	return CancelResult{
		TaskID:    t.ID,
		StoppedAt: t.Completed,
		Total:     t.Total,
		Reason:    reason,
	}, nil
}

// Wait blocks until the task's execution flow has exited or ctx is done.
func (r *Runner) Wait(ctx context.Context, id string) error {
	done, ok := r.store.doneChan(id)
	if !ok {
		return fmt.Errorf("no task with id %q: %w", id, ErrTaskNotFound)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execution describes one run of the step sequence over a registered task.
type execution struct {
	taskID       string
	from         int // first 1-based step to execute
	delay        time.Duration
	failAt       int // 0 never fails
	annotateStep int // step whose success line is marked as fixed, 0 for none
	completeText string
	origin       string
}

// launch registers t and spawns its execution flow. Shared by Start and Retry.
func (r *Runner) launch(t *Task, exec execution) error {
	ctx, cancel := context.WithCancel(r.baseCtx)
	t.cancel = cancel
	t.done = make(chan struct{})
	exec.taskID = t.ID

	if err := r.store.Add(t); err != nil {
		cancel()
		return fmt.Errorf("could not register task: %w", err)
	}
	r.metrics.TaskStarted(exec.origin)

	go r.execute(ctx, cancel, exec, t.done)
	return nil
}

type stepOutcome int

const (
	stepDone        stepOutcome = iota
	stepFailed                  // terminal, flow stops
	stepInterrupted             // re-evaluate at the step boundary
)

func (r *Runner) execute(ctx context.Context, cancel context.CancelFunc, exec execution, done chan struct{}) {
	defer close(done)
	defer cancel()

	logger := r.logger.WithValues(log.Kv{"task_id": exec.taskID})
	step := exec.from
	for step <= TotalSteps {
		if r.stopAtBoundary(ctx, exec, step, logger) {
			return
		}
		switch r.runStep(ctx, exec, step, logger) {
		case stepDone:
			step++
		case stepFailed:
			return
		case stepInterrupted:
		}
	}

	if r.store.SetCompleted(exec.taskID, exec.completeText) {
		if t, ok := r.store.Snapshot(exec.taskID); ok {
			r.metrics.TaskFinished(StatusCompleted, t.FinishedAt.Sub(t.StartedAt))
		}
		logger.Infof("Pipeline completed")
	}
}

// stopAtBoundary is the step-boundary checkpoint. It reports whether the flow
// must stop before executing step.
func (r *Runner) stopAtBoundary(ctx context.Context, exec execution, step int, logger log.Logger) bool {
	status, ok := r.store.Status(exec.taskID)
	if !ok {
		return true
	}
	if status != StatusRunning {
		r.store.AppendLog(exec.taskID, EntryCancel, fmt.Sprintf("✗ Cancelled at step %d/%d", step, TotalSteps))
		logger.Debugf("Observed cancellation at step %d", step)
		return true
	}
	if ctx.Err() != nil {
		r.store.AppendLog(exec.taskID, EntryInfo, fmt.Sprintf("Interrupted at step %d/%d: %v", step, TotalSteps, ctx.Err()))
		logger.Warningf("Execution interrupted at step %d", step)
		return true
	}
	return false
}

func (r *Runner) runStep(ctx context.Context, exec execution, step int, logger log.Logger) stepOutcome {
	began := r.now()
	if err := r.sleeper.Sleep(ctx, exec.delay); err != nil {
		return stepInterrupted
	}
	label := StepLabel(step)

	if step == exec.failAt {
		errMsg := fmt.Sprintf("Step %d %q failed: simulated error (exit code 1)", step, label)
		if !r.store.SetFailed(exec.taskID, errMsg, fmt.Sprintf("✗ FAILED: %s: %s", label, errMsg)) {
			return stepInterrupted
		}
		r.metrics.StepFinished(false, r.now().Sub(began))
		if t, ok := r.store.Snapshot(exec.taskID); ok {
			r.metrics.TaskFinished(StatusFailed, t.FinishedAt.Sub(t.StartedAt))
		}
		logger.Warningf("Pipeline failed at step %d", step)
		return stepFailed
	}

	text := fmt.Sprintf("✓ [%d/%d] %s", step, TotalSteps, label)
	if step == exec.annotateStep {
		text += " (fixed!)"
	}
	if !r.store.AdvanceStep(exec.taskID, step, text) {
		return stepInterrupted
	}
	r.metrics.StepFinished(true, r.now().Sub(began))
	logger.Debugf("Step %d/%d done", step, TotalSteps)
	return stepDone
}

package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
)

// LastLogEntries is how many log lines a progress snapshot carries.
const LastLogEntries = 5

// ReporterConfig is the configuration for the progress reporter.
type ReporterConfig struct {
	Store  *TaskStore
	Now    func() time.Time
	Logger log.Logger
}

func (c *ReporterConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.Reporter"})
	return nil
}

// Reporter computes read-only snapshots of tasks for polling clients.
type Reporter struct {
	store  *TaskStore
	now    func() time.Time
	logger log.Logger
}

// NewReporter creates a new progress reporter.
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Reporter{
		store:  cfg.Store,
		now:    cfg.Now,
		logger: cfg.Logger,
	}, nil
}

// Progress is a point-in-time snapshot of a task.
type Progress struct {
	TaskID      string
	Project     string
	Status      Status
	Completed   int
	Total       int
	Percentage  int
	Elapsed     time.Duration
	CurrentStep string // label of the next step, or NoFurtherStep
	LastLog     []string
	Error       string
	Lineage     string
}

// Fraction renders progress as "completed of total".
func (p Progress) Fraction() string {
	return fmt.Sprintf("%d of %d", p.Completed, p.Total)
}

// CheckProgress returns the current snapshot of a task.
func (r *Reporter) CheckProgress(id string) (Progress, error) {
	t, ok := r.store.Snapshot(id)
	if !ok {
		return Progress{}, fmt.Errorf("no task with id %q: %w", id, ErrTaskNotFound)
	}

	lines := t.RenderLog()
	if len(lines) > LastLogEntries {
		lines = lines[len(lines)-LastLogEntries:]
	}

	return Progress{
		TaskID:      t.ID,
		Project:     t.Project,
		Status:      t.Status,
		Completed:   t.Completed,
		Total:       t.Total,
		Percentage:  percentage(t.Completed, t.Total),
		Elapsed:     t.Elapsed(r.now()),
		CurrentStep: StepLabel(t.Completed + 1),
		LastLog:     lines,
		Error:       t.Error,
		Lineage:     t.Lineage,
	}, nil
}

func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ListTasks returns every known task with aggregate counts by status.
func (r *Reporter) ListTasks() ([]TaskSummary, StatusCounts) {
	counts, tasks := r.store.Summary()
	return tasks, counts
}

// TaskLogs returns the full logs of the requested tasks.
func (r *Reporter) TaskLogs(ids []string) []TaskLog {
	return r.store.Logs(ids)
}

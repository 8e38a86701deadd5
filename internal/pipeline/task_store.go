// task_store.go implements the thread-safe, in-memory task store.
//
// The runner's execution flows, cancellation, the progress reporter and the
// retry coordinator all access tasks through this store. State is ephemeral:
// it lives only for the duration of the server process.

package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
)

// TaskStoreConfig is the configuration for the task store.
type TaskStoreConfig struct {
	// MaxTasks caps the number of retained tasks. Zero keeps every task for
	// the life of the process. When the cap is exceeded the oldest terminal
	// tasks are evicted; running tasks are never evicted.
	MaxTasks int
	Now      func() time.Time
	Logger   log.Logger
}

func (c *TaskStoreConfig) defaults() error {
	if c.MaxTasks < 0 {
		return fmt.Errorf("max tasks can't be negative")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.TaskStore"})
	return nil
}

// TaskStore holds all tasks in memory, protected by a mutex. Tasks are stored
// in a map for O(1) lookup and a separate slice to preserve insertion order
// for stable iteration in List/Summary.
type TaskStore struct {
	mu       sync.Mutex
	tasks    map[string]*Task
	order    []string // insertion order for stable iteration
	maxTasks int
	now      func() time.Time
	logger   log.Logger
}

// NewTaskStore creates an empty task store.
func NewTaskStore(cfg TaskStoreConfig) (*TaskStore, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &TaskStore{
		tasks:    make(map[string]*Task),
		maxTasks: cfg.MaxTasks,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Add inserts a task into the store, evicting old terminal tasks if the
// retention cap is exceeded.
func (s *TaskStore) Add(t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("task %q: %w", t.ID, ErrAlreadyExists)
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	s.evictLocked()
	return nil
}

// evictLocked drops the oldest terminal tasks until the store fits the cap.
func (s *TaskStore) evictLocked() {
	if s.maxTasks == 0 || len(s.order) <= s.maxTasks {
		return
	}
	excess := len(s.order) - s.maxTasks
	kept := s.order[:0]
	for _, id := range s.order {
		if excess > 0 && s.tasks[id].Status.IsTerminal() {
			delete(s.tasks, id)
			excess--
			s.logger.Debugf("Evicted task %s", id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

// Len returns the number of tasks currently held.
func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Snapshot returns a copy of a task, or false if not found.
func (s *TaskStore) Snapshot(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return t.clone(), true
}

// Status returns the current status of a task.
func (s *TaskStore) Status(id string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return "", false
	}
	return t.Status, true
}

// doneChan returns the channel closed when the task's execution flow exits.
func (s *TaskStore) doneChan(id string) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.done, true
}

func (s *TaskStore) appendLocked(t *Task, kind EntryKind, text string) {
	t.Log = append(t.Log, LogEntry{At: s.now(), Kind: kind, Text: text})
}

// AdvanceStep marks step as completed and appends its log line. Only
// transitions a running task whose next step is step; returns false otherwise
// (e.g. it was cancelled while the step was in flight).
func (s *TaskStore) AdvanceStep(id string, step int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != StatusRunning || step != t.Completed+1 || step > t.Total {
		return false
	}
	t.Completed = step
	s.appendLocked(t, EntryStep, text)
	return true
}

// SetFailed marks a task as failed and stores the error message.
// Only transitions from running: a cancelled task won't be overwritten.
func (s *TaskStore) SetFailed(id, errMsg, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != StatusRunning {
		return false
	}
	t.Status = StatusFailed
	t.Error = errMsg
	t.FinishedAt = s.now()
	t.cancel = nil
	s.appendLocked(t, EntryFailure, text)
	return true
}

// SetCompleted marks a task as completed. Only transitions from running.
func (s *TaskStore) SetCompleted(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != StatusRunning {
		return false
	}
	t.Status = StatusCompleted
	t.FinishedAt = s.now()
	t.cancel = nil
	s.appendLocked(t, EntryComplete, text)
	return true
}

// SetCancelled marks a running task as cancelled, appends the request to its
// log and interrupts the in-flight step delay. Returns a copy of the task as
// it was left.
func (s *TaskStore) SetCancelled(id, reason string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("no task with id %q: %w", id, ErrTaskNotFound)
	}
	if t.Status != StatusRunning {
		return Task{}, fmt.Errorf("task is %q, not running: %w", t.Status, ErrInvalidState)
	}
	t.Status = StatusCancelled
	t.FinishedAt = s.now()
	s.appendLocked(t, EntryCancel, "⊘ Cancellation requested: "+reason)
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = nil
	return t.clone(), nil
}

// AppendLog appends an entry on behalf of the task's execution flow.
func (s *TaskStore) AppendLog(id string, kind EntryKind, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	s.appendLocked(t, kind, text)
	return true
}

// List returns copies of all tasks in insertion order.
func (s *TaskStore) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.tasks[id].clone())
	}
	return tasks
}

// StatusCounts aggregates tasks by status.
type StatusCounts struct {
	Total     int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// TaskSummary is the per-task listing view. No log content is included.
type TaskSummary struct {
	ID        string
	Status    Status
	Completed int
	Total     int
	Error     string
	Lineage   string
}

// Summary returns aggregate counts and per-task summaries. The lock is held
// for the entire operation so counts and rows agree.
func (s *TaskStore) Summary() (StatusCounts, []TaskSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts StatusCounts
	summaries := make([]TaskSummary, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		counts.Total++
		switch t.Status {
		case StatusRunning:
			counts.Running++
		case StatusCompleted:
			counts.Completed++
		case StatusFailed:
			counts.Failed++
		case StatusCancelled:
			counts.Cancelled++
		}
		summaries = append(summaries, TaskSummary{
			ID:        t.ID,
			Status:    t.Status,
			Completed: t.Completed,
			Total:     t.Total,
			Error:     t.Error,
			Lineage:   t.Lineage,
		})
	}
	return counts, summaries
}

// StatusNotFound is reported by Logs for unknown ids.
const StatusNotFound Status = "not_found"

// TaskLog is a task's full rendered log.
type TaskLog struct {
	ID      string
	Status  Status
	Lineage string
	Log     []string
	Error   string
}

// Logs returns the full logs for specific task ids. If a task id is not
// found, a not_found entry is returned for that id.
func (s *TaskStore) Logs(ids []string) []TaskLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]TaskLog, 0, len(ids))
	for _, id := range ids {
		t, ok := s.tasks[id]
		if !ok {
			logs = append(logs, TaskLog{
				ID:     id,
				Status: StatusNotFound,
				Error:  "task not found",
			})
			continue
		}
		logs = append(logs, TaskLog{
			ID:      t.ID,
			Status:  t.Status,
			Lineage: t.Lineage,
			Log:     t.RenderLog(),
			Error:   t.Error,
		})
	}
	return logs
}

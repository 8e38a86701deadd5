// task.go defines the internal task record held by the store and mutated by
// the task's execution flow. Callers outside the package only ever see copies.

package pipeline

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
//
// Lifecycle: running -> completed | failed | cancelled
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// RetryMode selects where a retry-derived task begins.
type RetryMode string

const (
	RetryResume  RetryMode = "resume"
	RetryRestart RetryMode = "restart"
)

// EntryKind classifies a log entry. Resume carries EntryStep entries forward.
type EntryKind int

const (
	EntryInfo EntryKind = iota
	EntryStep
	EntryFailure
	EntryCancel
	EntryComplete
)

// LogEntry is one timestamped event in a task's log.
type LogEntry struct {
	At      time.Time
	Kind    EntryKind
	Text    string
	Carried bool // copied from the parent task on resume
}

// String renders the entry as "[timestamp] text", with a "[retained] " prefix
// for carried entries.
func (e LogEntry) String() string {
	line := fmt.Sprintf("[%s] %s", e.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"), e.Text)
	if e.Carried {
		return "[retained] " + line
	}
	return line
}

// Task is one execution instance of the step sequence.
type Task struct {
	ID         string
	Project    string
	Lineage    string    // parent task id, set only on retry-derived tasks
	RetryMode  RetryMode // set only on retry-derived tasks
	StepDelay  time.Duration
	FailAtStep int // 0 means never fail

	Status    Status
	Total     int
	Completed int
	Log       []LogEntry
	Error     string // populated only when failed

	StartedAt  time.Time
	FinishedAt time.Time // set on entering a terminal status

	cancel context.CancelFunc // interrupts the in-flight step delay
	done   chan struct{}      // closed when the execution flow exits
}

// clone returns a copy that shares no mutable state with t.
func (t *Task) clone() Task {
	c := *t
	c.Log = append([]LogEntry(nil), t.Log...)
	c.cancel = nil
	c.done = nil
	return c
}

// Elapsed is the time since start while running, and the run duration once
// terminal.
func (t Task) Elapsed(now time.Time) time.Duration {
	if t.Status.IsTerminal() && !t.FinishedAt.IsZero() {
		return t.FinishedAt.Sub(t.StartedAt)
	}
	return now.Sub(t.StartedAt)
}

// RenderLog returns the rendered log lines.
func (t Task) RenderLog() []string {
	lines := make([]string, 0, len(t.Log))
	for _, e := range t.Log {
		lines = append(lines, e.String())
	}
	return lines
}

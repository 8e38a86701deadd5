// task_summary.go defines the list_tasks tool types: every known task with
// aggregate counts (no log content).
package main

// ListTasksArgs is the input for the list_tasks tool. No arguments needed.
type ListTasksArgs struct{}

// ListTasksOutput contains per-task statuses plus a compact summary.
type ListTasksOutput struct {
	Tasks   []TaskStatus `json:"tasks"`
	Total   int          `json:"total"`
	Summary TaskSummary  `json:"summary"`
}

// TaskSummary provides aggregate counts across all tasks.
type TaskSummary struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// TaskStatus is the per-task view in list_tasks.
type TaskStatus struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress string  `json:"progress"` // "3/12"
	Error    *string `json:"error"`
	RetryOf  string  `json:"retryOf,omitempty"`
}

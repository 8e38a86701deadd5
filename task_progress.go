// task_progress.go defines the check_progress tool types: a point-in-time
// snapshot of one task for polling clients.
package main

// CheckProgressArgs is the input for the check_progress tool.
type CheckProgressArgs struct {
	TaskID string `json:"taskId" jsonschema:"Task ID from start_pipeline or retry_task"`
}

// CheckProgressOutput is the snapshot of a single task.
type CheckProgressOutput struct {
	TaskID      string   `json:"taskId"`
	Status      string   `json:"status"`
	Progress    string   `json:"progress"`   // "3 of 12"
	Percentage  string   `json:"percentage"` // "25%"
	ElapsedMs   int64    `json:"elapsedMs"`  // frozen once the task is terminal
	CurrentStep string   `json:"currentStep"`
	LastLog     []string `json:"lastLog"`
	Error       *string  `json:"error"`
	RetryOf     string   `json:"retryOf,omitempty"` // parent task for retry-derived tasks
}

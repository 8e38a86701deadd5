// task_result.go defines the get_task_log tool types: full log retrieval for
// specific tasks.
package main

// GetTaskLogArgs is the input for the get_task_log tool.
type GetTaskLogArgs struct {
	TaskIDs []string `json:"taskIds" jsonschema:"Task IDs to retrieve full logs for"`
}

// GetTaskLogOutput contains the full log for each requested task.
type GetTaskLogOutput struct {
	Results []TaskLog `json:"results"`
}

// TaskLog includes every log line of a single task. Unknown IDs come back
// with status not_found.
type TaskLog struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	RetryOf string   `json:"retryOf,omitempty"`
	Log     []string `json:"log"`
	Error   string   `json:"error,omitempty"`
}

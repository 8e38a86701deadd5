// task_retry.go defines the retry_task tool types.
package main

// RetryTaskArgs is the input for the retry_task tool.
type RetryTaskArgs struct {
	TaskID string `json:"taskId"         jsonschema:"Original task ID to retry"`
	Mode   string `json:"mode,omitempty" jsonschema:"resume (default) continues after the last completed step, restart begins at step 1"`
	// FixFailingStep is a pointer so an omitted value can default to true.
	FixFailingStep *bool `json:"fixFailingStep,omitempty" jsonschema:"Mark the previously failing step as fixed in the new log (default true)"`
	StepDelayMs    int   `json:"stepDelayMs,omitempty"    jsonschema:"Delay between steps in ms, 50 to 5000 (default 300)"`
}

// RetryTaskOutput describes the derived task.
type RetryTaskOutput struct {
	NewTaskID      string `json:"newTaskId"`
	OriginalTaskID string `json:"originalTaskId"`
	Mode           string `json:"mode"`
	ResumeFromStep int    `json:"resumeFromStep"`
	Total          int    `json:"total"`
	FixFailingStep bool   `json:"fixFailingStep"`
	Message        string `json:"message"`
}

// cancel_task.go defines the cancel_task tool types.
package main

// CancelTaskArgs is the input for the cancel_task tool.
type CancelTaskArgs struct {
	TaskID string `json:"taskId"           jsonschema:"Task ID to cancel"`
	Reason string `json:"reason,omitempty" jsonschema:"Cancellation reason (default: User requested cancellation)"`
}

// CancelTaskOutput reports where the task stopped. The task's own flow
// observes the cancellation at its next step boundary.
type CancelTaskOutput struct {
	Status    string `json:"status"`
	TaskID    string `json:"taskId"`
	StoppedAt string `json:"stoppedAt"` // "4 of 12"
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

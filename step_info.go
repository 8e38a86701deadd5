// step_info.go defines the list_steps tool types.
package main

// ListStepsArgs is the input for the list_steps tool. No arguments needed.
type ListStepsArgs struct{}

// ListStepsOutput lists the fixed step sequence every task runs.
type ListStepsOutput struct {
	Steps []StepInfo `json:"steps"`
	Total int        `json:"total"`
}

// StepInfo describes a single step.
type StepInfo struct {
	Index int    `json:"index"` // 1-based
	Label string `json:"label"`
}

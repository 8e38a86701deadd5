// pipeline_start.go defines the start_pipeline tool types.
package main

// StartPipelineArgs is the input for the start_pipeline tool.
type StartPipelineArgs struct {
	Project     string `json:"project,omitempty"     jsonschema:"Project name (default acme-app)"`
	StepDelayMs int    `json:"stepDelayMs,omitempty" jsonschema:"Delay between steps in ms, 50 to 5000 (default 500)"`
	FailAtStep  int    `json:"failAtStep,omitempty"  jsonschema:"Inject failure at this step, 1 to 12 (0 = no failure)"`
}

// StartPipelineOutput is returned as soon as the task is registered.
type StartPipelineOutput struct {
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

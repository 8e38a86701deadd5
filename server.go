// server.go registers the MCP tools and translates between tool arguments and
// the pipeline engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AaronKronberg/pipeline-mcp/internal/log"
	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

const serverName = "pipeline-mcp"

// toolServer holds the engine shared by all tool handlers.
type toolServer struct {
	engine *pipeline.Engine
	logger log.Logger
}

// newMCPServer builds the MCP server with every pipeline tool registered.
func newMCPServer(engine *pipeline.Engine, version string, logger log.Logger) *mcp.Server {
	if logger == nil {
		logger = log.Noop
	}
	s := &toolServer{
		engine: engine,
		logger: logger.WithValues(log.Kv{"svc": "mcp.Server"}),
	}

	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "start_pipeline",
		Description: "Start a long-running build pipeline with 12 steps. Returns immediately with a task ID; " +
			"use check_progress to poll status.",
	}, s.startPipeline)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "check_progress",
		Description: "Check progress of a pipeline task. Returns current step, percentage, and the last log entries.",
	}, s.checkProgress)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "cancel_task",
		Description: "Cancel a running pipeline task. The task stops at its next step boundary.",
	}, s.cancelTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "retry_task",
		Description: "Retry a failed, cancelled or completed task. Can resume from where it stopped " +
			"or restart from the beginning. The new task keeps a reference to the original.",
	}, s.retryTask)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List all tasks (running, completed, failed, cancelled) with aggregate counts.",
	}, s.listTasks)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_task_log",
		Description: "Get the full log of specific tasks.",
	}, s.getTaskLog)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_steps",
		Description: "List the fixed sequence of steps every pipeline task runs.",
	}, s.listSteps)

	return srv
}

// toolError prefixes err with a stable code so clients can branch on it.
func (s *toolServer) toolError(tool string, err error) error {
	code := "internal_error"
	switch {
	case errors.Is(err, pipeline.ErrTaskNotFound):
		code = "task_not_found"
	case errors.Is(err, pipeline.ErrInvalidState):
		code = "invalid_state"
	case errors.Is(err, pipeline.ErrInvalidArgument):
		code = "invalid_argument"
	}
	s.logger.Debugf("Tool %s rejected: %s", tool, err)
	return fmt.Errorf("%s: %w", code, err)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *toolServer) startPipeline(ctx context.Context, req *mcp.CallToolRequest, args StartPipelineArgs) (*mcp.CallToolResult, StartPipelineOutput, error) {
	id, err := s.engine.Runner.Start(pipeline.StartRequest{
		Project:    args.Project,
		StepDelay:  millis(args.StepDelayMs),
		FailAtStep: args.FailAtStep,
	})
	if err != nil {
		return nil, StartPipelineOutput{}, s.toolError("start_pipeline", err)
	}

	return nil, StartPipelineOutput{
		TaskID:  id,
		Status:  string(pipeline.StatusRunning),
		Total:   pipeline.TotalSteps,
		Message: fmt.Sprintf("Pipeline started with %d steps. Use check_progress to poll.", pipeline.TotalSteps),
	}, nil
}

func (s *toolServer) checkProgress(ctx context.Context, req *mcp.CallToolRequest, args CheckProgressArgs) (*mcp.CallToolResult, CheckProgressOutput, error) {
	p, err := s.engine.Reporter.CheckProgress(args.TaskID)
	if err != nil {
		return nil, CheckProgressOutput{}, s.toolError("check_progress", err)
	}

	return nil, CheckProgressOutput{
		TaskID:      p.TaskID,
		Status:      string(p.Status),
		Progress:    p.Fraction(),
		Percentage:  fmt.Sprintf("%d%%", p.Percentage),
		ElapsedMs:   p.Elapsed.Milliseconds(),
		CurrentStep: p.CurrentStep,
		LastLog:     p.LastLog,
		Error:       optionalString(p.Error),
		RetryOf:     p.Lineage,
	}, nil
}

func (s *toolServer) cancelTask(ctx context.Context, req *mcp.CallToolRequest, args CancelTaskArgs) (*mcp.CallToolResult, CancelTaskOutput, error) {
	res, err := s.engine.Runner.Cancel(args.TaskID, args.Reason)
	if err != nil {
		return nil, CancelTaskOutput{}, s.toolError("cancel_task", err)
	}

	return nil, CancelTaskOutput{
		Status:    string(pipeline.StatusCancelled),
		TaskID:    res.TaskID,
		StoppedAt: fmt.Sprintf("%d of %d", res.StoppedAt, res.Total),
		Reason:    res.Reason,
		Message:   "Task cancelled. Use start_pipeline to start a new run, or retry_task to resume or restart it.",
	}, nil
}

func (s *toolServer) retryTask(ctx context.Context, req *mcp.CallToolRequest, args RetryTaskArgs) (*mcp.CallToolResult, RetryTaskOutput, error) {
	// plain bool in the engine; omitted means true
	fix := true
	if args.FixFailingStep != nil {
		fix = *args.FixFailingStep
	}

	res, err := s.engine.Retries.Retry(pipeline.RetryRequest{
		TaskID:         args.TaskID,
		Mode:           pipeline.RetryMode(args.Mode),
		FixFailingStep: fix,
		StepDelay:      millis(args.StepDelayMs),
	})
	if err != nil {
		return nil, RetryTaskOutput{}, s.toolError("retry_task", err)
	}

	msg := "Restarting from step 1. Poll with check_progress."
	if res.Mode == pipeline.RetryResume {
		msg = fmt.Sprintf("Resuming from step %d/%d. Poll with check_progress.", res.ResumeFromStep, res.Total)
	}
	return nil, RetryTaskOutput{
		NewTaskID:      res.NewTaskID,
		OriginalTaskID: res.OriginalTaskID,
		Mode:           string(res.Mode),
		ResumeFromStep: res.ResumeFromStep,
		Total:          res.Total,
		FixFailingStep: res.FixFailingStep,
		Message:        msg,
	}, nil
}

func (s *toolServer) listTasks(ctx context.Context, req *mcp.CallToolRequest, args ListTasksArgs) (*mcp.CallToolResult, ListTasksOutput, error) {
	tasks, counts := s.engine.Reporter.ListTasks()

	statuses := make([]TaskStatus, 0, len(tasks))
	for _, t := range tasks {
		statuses = append(statuses, TaskStatus{
			ID:       t.ID,
			Status:   string(t.Status),
			Progress: fmt.Sprintf("%d/%d", t.Completed, t.Total),
			Error:    optionalString(t.Error),
			RetryOf:  t.Lineage,
		})
	}

	return nil, ListTasksOutput{
		Tasks: statuses,
		Total: counts.Total,
		Summary: TaskSummary{
			Running:   counts.Running,
			Completed: counts.Completed,
			Failed:    counts.Failed,
			Cancelled: counts.Cancelled,
		},
	}, nil
}

func (s *toolServer) getTaskLog(ctx context.Context, req *mcp.CallToolRequest, args GetTaskLogArgs) (*mcp.CallToolResult, GetTaskLogOutput, error) {
	logs := s.engine.Reporter.TaskLogs(args.TaskIDs)

	results := make([]TaskLog, 0, len(logs))
	for _, l := range logs {
		lines := l.Log
		if lines == nil {
			lines = []string{}
		}
		results = append(results, TaskLog{
			ID:      l.ID,
			Status:  string(l.Status),
			RetryOf: l.Lineage,
			Log:     lines,
			Error:   l.Error,
		})
	}
	return nil, GetTaskLogOutput{Results: results}, nil
}

func (s *toolServer) listSteps(ctx context.Context, req *mcp.CallToolRequest, args ListStepsArgs) (*mcp.CallToolResult, ListStepsOutput, error) {
	steps := pipeline.Steps()
	infos := make([]StepInfo, 0, len(steps))
	for _, st := range steps {
		infos = append(infos, StepInfo{Index: st.Index, Label: st.Label})
	}
	return nil, ListStepsOutput{Steps: infos, Total: len(infos)}, nil
}

package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

func TestCheckProgressNotFound(t *testing.T) {
	e := newTestEngine(t, pipeline.NoDelay, nil)
	_, err := e.Reporter.CheckProgress("ghost")
	assert.ErrorIs(t, err, pipeline.ErrTaskNotFound)
}

func TestCheckProgressIntermediate(t *testing.T) {
	clock := newFakeClock()
	gate := newGateSleeper()
	e := newTestEngine(t, gate, clock.Now)

	id, err := e.Runner.Start(pipeline.StartRequest{Project: "acme-app"})
	require.NoError(t, err)
	gate.runSteps(t, 3)
	clock.Advance(1500 * time.Millisecond)

	p, err := e.Reporter.CheckProgress(id)
	require.NoError(t, err)
	assert.Equal(t, "acme-app", p.Project)
	assert.Equal(t, pipeline.StatusRunning, p.Status)
	assert.Equal(t, "3 of 12", p.Fraction())
	assert.Equal(t, 25, p.Percentage)
	assert.Equal(t, "Running unit tests", p.CurrentStep)
	assert.Equal(t, 1500*time.Millisecond, p.Elapsed)
	assert.Equal(t, []string{
		"[2026-10-18T09:00:00.000Z] Pipeline started for acme-app",
		"[2026-10-18T09:00:00.000Z] ✓ [1/12] Cloning repository",
		"[2026-10-18T09:00:00.000Z] ✓ [2/12] Installing dependencies",
		"[2026-10-18T09:00:00.000Z] ✓ [3/12] Running linter",
	}, p.LastLog)
	assert.Empty(t, p.Error)
	assert.Empty(t, p.Lineage)

	_, err = e.Runner.Cancel(id, "")
	require.NoError(t, err)
	waitTask(t, e, id)
}

func TestCheckProgressKeepsLastFiveLines(t *testing.T) {
	e := newTestEngine(t, pipeline.NoDelay, nil)

	id, err := e.Runner.Start(pipeline.StartRequest{})
	require.NoError(t, err)
	p := waitTask(t, e, id)

	require.Len(t, p.LastLog, pipeline.LastLogEntries)
	assert.Contains(t, p.LastLog[0], "[9/12] Running security scan")
	assert.Contains(t, p.LastLog[4], "Pipeline completed successfully")
}

func TestCheckProgressPercentages(t *testing.T) {
	tests := map[string]struct {
		steps  int
		expPct int
	}{
		"no steps":     {steps: 0, expPct: 0},
		"one step":     {steps: 1, expPct: 8},
		"two steps":    {steps: 2, expPct: 17},
		"half the way": {steps: 6, expPct: 50},
		"eleven steps": {steps: 11, expPct: 92},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			gate := newGateSleeper()
			e := newTestEngine(t, gate, nil)

			id, err := e.Runner.Start(pipeline.StartRequest{})
			require.NoError(t, err)
			gate.runSteps(t, test.steps)

			p, err := e.Reporter.CheckProgress(id)
			require.NoError(t, err)
			assert.Equal(t, test.expPct, p.Percentage)

			_, err = e.Runner.Cancel(id, "")
			require.NoError(t, err)
			waitTask(t, e, id)
		})
	}
}

func TestTerminalReadsAreIdempotent(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(t, pipeline.NoDelay, clock.Now)

	id, err := e.Runner.Start(pipeline.StartRequest{FailAtStep: 5})
	require.NoError(t, err)
	first := waitTask(t, e, id)

	clock.Advance(time.Hour)
	second, err := e.Reporter.CheckProgress(id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListTasks(t *testing.T) {
	e := newTestEngine(t, pipeline.NoDelay, nil)

	tasks, counts := e.Reporter.ListTasks()
	assert.Empty(t, tasks)
	assert.Equal(t, 0, counts.Total)

	failed, err := e.Runner.Start(pipeline.StartRequest{FailAtStep: 2})
	require.NoError(t, err)
	waitTask(t, e, failed)
	done, err := e.Runner.Start(pipeline.StartRequest{})
	require.NoError(t, err)
	waitTask(t, e, done)
	res, err := e.Retries.Retry(pipeline.RetryRequest{TaskID: failed})
	require.NoError(t, err)
	waitTask(t, e, res.NewTaskID)

	tasks, counts = e.Reporter.ListTasks()
	assert.Equal(t, pipeline.StatusCounts{Total: 3, Completed: 2, Failed: 1}, counts)
	require.Len(t, tasks, 3)
	assert.Equal(t, failed, tasks[0].ID)
	assert.Equal(t, 1, tasks[0].Completed)
	assert.NotEmpty(t, tasks[0].Error)
	assert.Equal(t, done, tasks[1].ID)
	assert.Equal(t, res.NewTaskID, tasks[2].ID)
	assert.Equal(t, failed, tasks[2].Lineage)
}

func TestTaskLogs(t *testing.T) {
	e := newTestEngine(t, pipeline.NoDelay, nil)

	id, err := e.Runner.Start(pipeline.StartRequest{})
	require.NoError(t, err)
	waitTask(t, e, id)

	logs := e.Reporter.TaskLogs([]string{id, "ghost"})
	require.Len(t, logs, 2)
	assert.Len(t, logs[0].Log, 1+pipeline.TotalSteps+1)
	assert.Equal(t, pipeline.StatusNotFound, logs[1].Status)
}

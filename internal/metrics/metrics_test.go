package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronKronberg/pipeline-mcp/internal/metrics"
	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

func TestRecorderCountsEngineEvents(t *testing.T) {
	rec := metrics.NewRecorder()
	store, err := pipeline.NewTaskStore(pipeline.TaskStoreConfig{})
	require.NoError(t, err)
	e, err := pipeline.NewEngine(pipeline.EngineConfig{Store: store, Sleeper: pipeline.NoDelay, Metrics: rec})
	require.NoError(t, err)

	id, err := e.Runner.Start(pipeline.StartRequest{FailAtStep: 2})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Runner.Wait(ctx, id))

	expected := `
# HELP pipeline_tasks_finished_total Total number of pipeline tasks that reached a terminal status
# TYPE pipeline_tasks_finished_total counter
pipeline_tasks_finished_total{status="failed"} 1
# HELP pipeline_tasks_running Number of tasks currently running
# TYPE pipeline_tasks_running gauge
pipeline_tasks_running 0
# HELP pipeline_tasks_started_total Total number of pipeline tasks started by origin
# TYPE pipeline_tasks_started_total counter
pipeline_tasks_started_total{origin="start"} 1
# HELP pipeline_steps_total Total number of executed steps by result
# TYPE pipeline_steps_total counter
pipeline_steps_total{result="failed"} 1
pipeline_steps_total{result="succeeded"} 1
`
	err = testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected),
		"pipeline_tasks_finished_total",
		"pipeline_tasks_running",
		"pipeline_tasks_started_total",
		"pipeline_steps_total",
	)
	assert.NoError(t, err)
}

func TestRecorderHandler(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.TaskStarted(pipeline.OriginRetry)
	rec.TaskFinished(pipeline.StatusCancelled, time.Second)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pipeline_tasks_started_total{origin="retry"} 1`)
	assert.Contains(t, string(body), `pipeline_task_duration_seconds_count{status="cancelled"} 1`)
}

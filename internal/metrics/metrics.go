// Package metrics implements the pipeline metrics recorder on Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

// Recorder holds all Prometheus metrics for the pipeline engine.
type Recorder struct {
	tasksStarted  *prometheus.CounterVec
	tasksFinished *prometheus.CounterVec
	tasksRunning  prometheus.Gauge
	taskDuration  *prometheus.HistogramVec

	stepsTotal   *prometheus.CounterVec
	stepDuration prometheus.Histogram

	registry *prometheus.Registry
}

var _ pipeline.MetricsRecorder = (*Recorder)(nil)

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		tasksStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_tasks_started_total",
				Help: "Total number of pipeline tasks started by origin",
			},
			[]string{"origin"},
		),

		tasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_tasks_finished_total",
				Help: "Total number of pipeline tasks that reached a terminal status",
			},
			[]string{"status"},
		),

		tasksRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_tasks_running",
				Help: "Number of tasks currently running",
			},
		),

		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_task_duration_seconds",
				Help:    "Task duration from start to terminal status in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_steps_total",
				Help: "Total number of executed steps by result",
			},
			[]string{"result"},
		),

		stepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_step_duration_seconds",
				Help:    "Step execution duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		r.tasksStarted,
		r.tasksFinished,
		r.tasksRunning,
		r.taskDuration,
		r.stepsTotal,
		r.stepDuration,
	)

	return r
}

// TaskStarted records a new running task.
func (r *Recorder) TaskStarted(origin string) {
	r.tasksStarted.WithLabelValues(origin).Inc()
	r.tasksRunning.Inc()
}

// StepFinished records one executed step.
func (r *Recorder) StepFinished(succeeded bool, d time.Duration) {
	result := "succeeded"
	if !succeeded {
		result = "failed"
	}
	r.stepsTotal.WithLabelValues(result).Inc()
	r.stepDuration.Observe(d.Seconds())
}

// TaskFinished records a task leaving the running status.
func (r *Recorder) TaskFinished(status pipeline.Status, d time.Duration) {
	r.tasksFinished.WithLabelValues(string(status)).Inc()
	r.tasksRunning.Dec()
	r.taskDuration.WithLabelValues(string(status)).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the HTTP handler exposing the metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

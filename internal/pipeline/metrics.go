package pipeline

import "time"

// Origin labels how a task was created.
const (
	OriginStart = "start"
	OriginRetry = "retry"
)

// MetricsRecorder receives engine events.
type MetricsRecorder interface {
	TaskStarted(origin string)
	StepFinished(succeeded bool, d time.Duration)
	TaskFinished(status Status, d time.Duration)
}

type noopMetrics struct{}

// NoopMetrics discards every event.
var NoopMetrics MetricsRecorder = noopMetrics{}

func (noopMetrics) TaskStarted(string)                 {}
func (noopMetrics) StepFinished(bool, time.Duration)   {}
func (noopMetrics) TaskFinished(Status, time.Duration) {}

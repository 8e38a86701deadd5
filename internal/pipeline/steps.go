package pipeline

import (
	"fmt"
	"time"
)

// stepLabels is the fixed step sequence shared by fresh and retry-derived
// tasks. Step n (1-based) is stepLabels[n-1].
var stepLabels = [...]string{
	"Cloning repository",
	"Installing dependencies",
	"Running linter",
	"Running unit tests",
	"Running integration tests",
	"Building frontend bundle",
	"Building backend bundle",
	"Optimizing assets",
	"Running security scan",
	"Generating documentation",
	"Creating deployment package",
	"Publishing artifacts",
}

// TotalSteps is the length of the step sequence.
const TotalSteps = len(stepLabels)

// NoFurtherStep is reported as the current step once every step completed.
const NoFurtherStep = "(done)"

const (
	// MinStepDelay and MaxStepDelay bound the simulated per-step work duration.
	MinStepDelay = 50 * time.Millisecond
	MaxStepDelay = 5000 * time.Millisecond

	DefaultStepDelay      = 500 * time.Millisecond
	DefaultRetryStepDelay = 300 * time.Millisecond
	DefaultProject        = "acme-app"
	DefaultCancelReason   = "User requested cancellation"
)

// Step is one entry of the step sequence.
type Step struct {
	Index int
	Label string
}

// Steps returns a copy of the step sequence.
func Steps() []Step {
	steps := make([]Step, 0, TotalSteps)
	for i, l := range stepLabels {
		steps = append(steps, Step{Index: i + 1, Label: l})
	}
	return steps
}

// StepLabel returns the label of the 1-based step n, or NoFurtherStep when n
// is past the end of the sequence.
func StepLabel(n int) string {
	if n < 1 || n > TotalSteps {
		return NoFurtherStep
	}
	return stepLabels[n-1]
}

// resolveStepDelay applies the default for a zero delay and enforces bounds.
func resolveStepDelay(d, def time.Duration) (time.Duration, error) {
	if d == 0 {
		d = def
	}
	if d < MinStepDelay || d > MaxStepDelay {
		return 0, fmt.Errorf("step delay %s outside [%s, %s]: %w", d, MinStepDelay, MaxStepDelay, ErrInvalidArgument)
	}
	return d, nil
}

package pipeline_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

// gateSleeper blocks every step until the test releases it, so intermediate
// states can be observed without wall-clock sleeps.
type gateSleeper struct {
	entered chan struct{}
	release chan struct{}
}

func newGateSleeper() *gateSleeper {
	return &gateSleeper{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateSleeper) Sleep(ctx context.Context, _ time.Duration) error {
	select {
	case g.entered <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitStep blocks until a flow is sleeping on its next step.
func (g *gateSleeper) awaitStep(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a step to start")
	}
}

// releaseStep lets the sleeping step finish.
func (g *gateSleeper) releaseStep(t *testing.T) {
	t.Helper()
	select {
	case g.release <- struct{}{}:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out releasing a step")
	}
}

// runSteps lets n steps run and returns once the flow sleeps on the next one.
func (g *gateSleeper) runSteps(t *testing.T, n int) {
	t.Helper()
	g.awaitStep(t)
	for i := 0; i < n; i++ {
		g.releaseStep(t)
		g.awaitStep(t)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, sleeper pipeline.Sleeper, clock func() time.Time) *pipeline.Engine {
	t.Helper()
	store, err := pipeline.NewTaskStore(pipeline.TaskStoreConfig{Now: clock})
	require.NoError(t, err)
	e, err := pipeline.NewEngine(pipeline.EngineConfig{
		Store:   store,
		Sleeper: sleeper,
		Now:     clock,
	})
	require.NoError(t, err)
	return e
}

func waitTask(t *testing.T, e *pipeline.Engine, id string) pipeline.Progress {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Runner.Wait(ctx, id))
	p, err := e.Reporter.CheckProgress(id)
	require.NoError(t, err)
	return p
}

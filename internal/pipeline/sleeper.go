package pipeline

import (
	"context"
	"time"
)

// Sleeper suspends an execution flow for the duration of one step. It must
// return ctx.Err() if ctx is done before d elapses.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to a Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper waits on a timer.
var RealSleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// NoDelay returns immediately. Used in tests.
var NoDelay = SleeperFunc(func(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
})

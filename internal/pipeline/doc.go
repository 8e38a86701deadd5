// Package pipeline is the asynchronous pipeline-execution engine.
//
// A [Runner] starts the fixed step sequence as a background task, the
// [Reporter] exposes point-in-time progress for polling, and the
// [RetryCoordinator] derives a new lineage-linked task from a terminated one.
// All of them share an explicitly constructed [TaskStore].
//
// Cancellation is cooperative: Cancel marks the task cancelled immediately,
// and the task's execution flow observes it at its next step boundary.
package pipeline

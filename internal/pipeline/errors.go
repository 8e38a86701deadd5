package pipeline

import "errors"

var (
	// ErrTaskNotFound is returned when a task id is not present in the store.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidState is returned when an operation is not allowed for the
	// task's current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument is returned when a request parameter is out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyExists is returned when adding a task whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
)

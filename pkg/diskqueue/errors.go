package diskqueue

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/diskqueue/pkg/storage"
)

var (
	// ErrUnresolvableReference is returned when a job reference has no handler
	ErrUnresolvableReference = errors.New("unresolvable job reference")

	// ErrIndexOutOfRange is returned by Get for an index outside the queue
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidID is returned when a queue identifier cannot name a file
	ErrInvalidID = storage.ErrInvalidID

	// ErrNilHandler is returned when registering or enqueuing a nil handler
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrHandlerAlreadyRegistered is returned when a reference is registered twice
	ErrHandlerAlreadyRegistered = errors.New("handler already registered")

	// ErrEmptyReference is returned when enqueuing a job without a reference
	ErrEmptyReference = errors.New("job reference cannot be empty")

	// ErrQueueNil is returned when a runner is created without a queue
	ErrQueueNil = errors.New("queue cannot be nil")

	// ErrAbort can be returned by a handler to stop the run and keep its job
	ErrAbort = errors.New("abort requested by handler")

	// ErrAborted is returned by Runner.Run when the run was aborted
	ErrAborted = errors.New("run aborted")

	// ErrJobPanicked wraps the value recovered from a panicking handler
	ErrJobPanicked = errors.New("job panicked")

	// ErrArgMissing is returned by Args accessors for absent arguments
	ErrArgMissing = errors.New("argument missing")

	// ErrArgType is returned by Args accessors when the value has another type
	ErrArgType = errors.New("argument has unexpected type")
)

// UnresolvedError is returned by PopTask when the popped job's reference
// cannot be resolved. The job has already left the queue and is carried here
// so the caller can put it back.
type UnresolvedError struct {
	Job Job
	Err error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrUnresolvableReference, e.Job.Ref, e.Err)
}

func (e *UnresolvedError) Unwrap() []error {
	return []error{ErrUnresolvableReference, e.Err}
}

// JobError reports a failed job.
type JobError struct {
	Job Job
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s (%s) failed: %v", e.Job.ID, e.Job.Ref, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

package filelock

import "errors"

var (
	// ErrLockTimeout is returned when a lock could not be acquired within the timeout
	ErrLockTimeout = errors.New("lock not acquired within timeout")

	// ErrEmptyPath is returned when an empty path is passed to Acquire
	ErrEmptyPath = errors.New("lock path cannot be empty")

	// ErrNotHeld is returned when releasing a lock that is no longer held by the caller
	ErrNotHeld = errors.New("lock is not held")
)

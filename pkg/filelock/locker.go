package filelock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// LockSuffix distinguishes lock artifacts from the data files they protect.
	LockSuffix = ".lock"

	// DefaultTimeout is used when Acquire is called with a non-positive timeout.
	DefaultTimeout = 5 * time.Second

	// DefaultRetryDelay is the polling interval between acquisition attempts.
	DefaultRetryDelay = 10 * time.Millisecond
)

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func() error

// Locker hands out exclusive locks keyed by the path of the protected file.
type Locker interface {
	// Acquire blocks until the lock for path is held, the timeout elapses
	// (ErrLockTimeout) or ctx is done (ctx.Err()).
	Acquire(ctx context.Context, path string, timeout time.Duration) (Unlock, error)
}

// LockPath returns the path of the lock artifact protecting path.
func LockPath(path string) string {
	return path + LockSuffix
}

func timeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return DefaultTimeout
}

// acquireErr maps a context failure from a bounded acquisition attempt onto
// the package errors: the parent context wins, otherwise it was our deadline.
func acquireErr(parent context.Context, path string, timeout time.Duration, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrLockTimeout, path, timeout)
	}
	return fmt.Errorf("failed to acquire lock %s: %w", path, err)
}

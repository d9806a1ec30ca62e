package filelock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileLocker is a Locker backed by flock(2) on "<path>.lock".
//
// Each acquisition opens its own file descriptor, so the lock excludes other
// goroutines of the same process as well as other processes. The lock file is
// never removed; deleting it while another process waits on it would break
// mutual exclusion.
type FileLocker struct {
	retryDelay time.Duration
}

// FileLockerOption configures a FileLocker.
type FileLockerOption func(*FileLocker)

// WithRetryDelay sets how often a contended lock is retried.
func WithRetryDelay(d time.Duration) FileLockerOption {
	return func(l *FileLocker) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

// NewFileLocker creates a new flock based locker.
func NewFileLocker(opts ...FileLockerOption) *FileLocker {
	l := &FileLocker{retryDelay: DefaultRetryDelay}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire implements Locker.
func (l *FileLocker) Acquire(ctx context.Context, path string, timeout time.Duration) (Unlock, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	timeout = timeoutOrDefault(timeout)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(LockPath(path))
	locked, err := fl.TryLockContext(lockCtx, l.retryDelay)
	if err != nil || !locked {
		if lockCtx.Err() != nil {
			return nil, acquireErr(ctx, path, timeout, lockCtx.Err())
		}
		if err == nil {
			return nil, acquireErr(ctx, path, timeout, nil)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}

	var once sync.Once
	return func() error {
		var unlockErr error
		once.Do(func() {
			unlockErr = fl.Unlock()
		})
		return unlockErr
	}, nil
}

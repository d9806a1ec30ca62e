package filelock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an in-process Locker keyed by path.
// It lets queue logic be exercised under simulated contention without touching
// the filesystem lock primitive.
type MemoryLocker struct {
	mu       sync.Mutex
	slots    map[string]chan struct{}
	acquired map[string]int
}

// NewMemoryLocker creates an empty in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		slots:    make(map[string]chan struct{}),
		acquired: make(map[string]int),
	}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, path string, timeout time.Duration) (Unlock, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	timeout = timeoutOrDefault(timeout)

	slot := l.slot(path)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, acquireErr(ctx, path, timeout, nil)
	}

	l.mu.Lock()
	l.acquired[path]++
	l.mu.Unlock()

	var once sync.Once
	return func() error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}

// Acquisitions returns how many times the lock for path has been acquired.
func (l *MemoryLocker) Acquisitions(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired[path]
}

// Held reports whether the lock for path is currently held.
func (l *MemoryLocker) Held(path string) bool {
	return len(l.slot(path)) > 0
}

func (l *MemoryLocker) slot(path string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[path]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[path] = ch
	}
	return ch
}

package diskqueue_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/diskqueue/pkg/diskqueue"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/logger"
)

var (
	errBoom       = errors.New("boom")
	errLockerDown = errors.New("locker down")
)

// breakableLocker fails every acquisition once broken is set.
type breakableLocker struct {
	filelock.Locker
	broken atomic.Bool
}

func (l *breakableLocker) Acquire(ctx context.Context, path string, timeout time.Duration) (filelock.Unlock, error) {
	if l.broken.Load() {
		return nil, errLockerDown
	}
	return l.Locker.Acquire(ctx, path, timeout)
}

func testConfig(t *testing.T) diskqueue.Config {
	t.Helper()
	cfg := diskqueue.DefaultConfig()
	cfg.Root = filepath.Join(t.TempDir(), "queues")
	cfg.LockTimeout = 2 * time.Second
	cfg.PopLockTimeout = 2 * time.Second
	return cfg
}

func openQueue(t *testing.T, cfg diskqueue.Config, reg diskqueue.Resolver, opts ...diskqueue.Option) *diskqueue.Queue {
	t.Helper()
	opts = append([]diskqueue.Option{
		diskqueue.WithResolver(reg),
		diskqueue.WithLogger(logger.Discard()),
	}, opts...)
	q, err := diskqueue.New(context.Background(), "jobs", cfg, opts...)
	require.NoError(t, err)
	return q
}

func newRunner(t *testing.T, q *diskqueue.Queue, opts ...diskqueue.RunnerOption) *diskqueue.Runner {
	t.Helper()
	opts = append([]diskqueue.RunnerOption{diskqueue.WithRunnerLogger(logger.Discard())}, opts...)
	r, err := diskqueue.NewRunner(q, opts...)
	require.NoError(t, err)
	return r
}

// counter records handler invocations by name.
type counter struct {
	mu    sync.Mutex
	calls map[string]int
	order []string
}

func newCounter() *counter {
	return &counter{calls: make(map[string]int)}
}

func (c *counter) handler(name string, result error) diskqueue.HandlerFunc {
	return func(context.Context, diskqueue.Args) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.calls[name]++
		c.order = append(c.order, name)
		return result
	}
}

func (c *counter) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *counter) sequence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func refs(t *testing.T, q *diskqueue.Queue) []string {
	t.Helper()
	jobs, err := q.List(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Ref)
	}
	return out
}

func noopJob(context.Context, diskqueue.Args) error { return nil }

func failingJob(context.Context, diskqueue.Args) error { return errBoom }

package diskqueue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/diskqueue/pkg/blobstore"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/logger"
	"github.com/dmitrymomot/diskqueue/pkg/storage"
)

// Queue is a handle to one queue file. It holds no queue state in memory and
// is safe for concurrent use.
type Queue struct {
	id       string
	path     string
	paths    storage.Paths
	maxDepth int

	store    *blobstore.Store
	locker   filelock.Locker
	resolver Resolver
	logger   *slog.Logger

	lockTimeout    time.Duration
	popLockTimeout time.Duration
	now            func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

// Task is a popped job together with its resolved handler.
type Task struct {
	Job     Job
	Handler HandlerFunc
}

// Run invokes the handler with the job arguments.
func (t *Task) Run(ctx context.Context) error {
	return t.Handler(ctx, t.Job.Arguments())
}

// New opens the queue id, creating the storage root if necessary. The queue
// file itself is created lazily by the first operation.
func New(ctx context.Context, id string, cfg Config, opts ...Option) (*Queue, error) {
	q, o, err := newQueue(id, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := q.paths.EnsureRoot(ctx, q.locker, q.maxDepth); err != nil {
		return nil, err
	}
	if o.overwrite {
		if err := q.Clear(ctx); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func newQueue(id string, cfg Config, opts ...Option) (*Queue, *options, error) {
	cfg = cfg.withDefaults()

	o := &options{
		resolver:       DefaultRegistry,
		logger:         slog.Default(),
		codec:          blobstore.MsgpackCodec{},
		lockTimeout:    cfg.LockTimeout,
		popLockTimeout: cfg.PopLockTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.locker == nil {
		o.locker = filelock.NewFileLocker()
	}

	paths, err := storage.New(cfg.Root, cfg.FileExt)
	if err != nil {
		return nil, nil, err
	}
	path, err := paths.Path(id)
	if err != nil {
		return nil, nil, err
	}

	log := o.logger.With(logger.Component("diskqueue"), logger.QueueID(id))
	store, err := blobstore.New(o.locker,
		blobstore.WithCodec(o.codec),
		blobstore.WithTimeout(o.lockTimeout),
		blobstore.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	return &Queue{
		id:             id,
		path:           path,
		paths:          paths,
		maxDepth:       cfg.MaxDirDepth,
		store:          store,
		locker:         o.locker,
		resolver:       o.resolver,
		logger:         log,
		lockTimeout:    o.lockTimeout,
		popLockTimeout: o.popLockTimeout,
		now:            o.now,
		rand:           o.rand,
	}, o, nil
}

// ID returns the queue identifier.
func (q *Queue) ID() string {
	return q.id
}

// Path returns the absolute path of the queue file.
func (q *Queue) Path() string {
	return q.path
}

// Exists reports whether the queue file has been created.
func (q *Queue) Exists() bool {
	return q.store.Exists(q.path)
}

// Len returns the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.view(ctx, q.lockTimeout, func(s State) error {
		n = len(s)
		return nil
	})
	return n, err
}

// Get returns the job at index without removing it. Negative indexes count
// from the tail, -1 being the last job.
func (q *Queue) Get(ctx context.Context, index int) (Job, error) {
	var job Job
	err := q.view(ctx, q.lockTimeout, func(s State) error {
		i := index
		if i < 0 {
			i += len(s)
		}
		if i < 0 || i >= len(s) {
			return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s))
		}
		job = s[i]
		return nil
	})
	return job, err
}

// List returns a snapshot of all pending jobs, head first.
func (q *Queue) List(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := q.view(ctx, q.lockTimeout, func(s State) error {
		jobs = append(make([]Job, 0, len(s)), s...)
		return nil
	})
	return jobs, err
}

// AddTask appends a job invoking fn. Only the reference of fn is stored, so
// the running process must be able to resolve it.
func (q *Queue) AddTask(ctx context.Context, fn HandlerFunc, opts ...TaskOption) (Job, error) {
	if fn == nil {
		return Job{}, ErrNilHandler
	}
	ref, err := q.resolver.ReferenceOf(fn)
	if err != nil {
		return Job{}, err
	}

	o := &taskOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return q.Enqueue(ctx, ref, o.args, o.kwargs)
}

// Enqueue appends a job for the handler registered under ref.
// The returned job holds args and kwargs as they are stored: signed integers
// become int64, unsigned integers uint64 and floats float64.
func (q *Queue) Enqueue(ctx context.Context, ref string, args []any, kwargs map[string]any) (Job, error) {
	if ref == "" {
		return Job{}, ErrEmptyReference
	}
	var job Job
	if err := q.store.Normalize(Job{
		ID:         uuid.New(),
		Ref:        ref,
		Args:       args,
		Kwargs:     kwargs,
		EnqueuedAt: q.now(),
	}, &job); err != nil {
		return Job{}, err
	}
	job.EnqueuedAt = job.EnqueuedAt.UTC()

	if err := q.append(ctx, job); err != nil {
		return Job{}, err
	}

	q.logger.DebugContext(ctx, "job enqueued", logger.JobID(job.ID), logger.JobRef(ref))
	return job, nil
}

// requeue puts a job that already left the queue back at the tail.
func (q *Queue) requeue(ctx context.Context, job Job) error {
	return q.append(ctx, job)
}

func (q *Queue) append(ctx context.Context, job Job) error {
	return q.update(ctx, q.lockTimeout, func(s State) (State, error) {
		return append(s, job), nil
	})
}

// PopTask removes the head job and resolves its handler. It returns nil when
// the queue is empty.
//
// The handler is resolved after the lock is released. If that fails the job is
// already gone from the queue; the returned *UnresolvedError carries it.
func (q *Queue) PopTask(ctx context.Context) (*Task, error) {
	var (
		job    Job
		popped bool
	)
	err := q.update(ctx, q.popLockTimeout, func(s State) (State, error) {
		if len(s) == 0 {
			return nil, nil
		}
		job, popped = s[0], true
		return s[1:], nil
	})
	if err != nil || !popped {
		return nil, err
	}

	fn, err := q.resolver.Resolve(job.Ref)
	if err != nil {
		return nil, &UnresolvedError{Job: job, Err: err}
	}
	return &Task{Job: job, Handler: fn}, nil
}

// PeekTask returns the head job without removing or resolving it. It returns
// nil when the queue is empty.
func (q *Queue) PeekTask(ctx context.Context) (*Job, error) {
	var job *Job
	err := q.view(ctx, q.popLockTimeout, func(s State) error {
		if len(s) > 0 {
			head := s[0]
			job = &head
		}
		return nil
	})
	return job, err
}

// Shuffle randomly permutes the pending jobs.
func (q *Queue) Shuffle(ctx context.Context) error {
	return q.update(ctx, q.lockTimeout, func(s State) (State, error) {
		q.shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		return s, nil
	})
}

func (q *Queue) shuffle(n int, swap func(i, j int)) {
	if q.rand == nil {
		rand.Shuffle(n, swap)
		return
	}
	q.randMu.Lock()
	defer q.randMu.Unlock()
	q.rand.Shuffle(n, swap)
}

// Clear deletes the queue file. Clearing a queue that does not exist is a
// no-op.
func (q *Queue) Clear(ctx context.Context) error {
	if !q.Exists() {
		return nil
	}
	err := q.store.WithLock(ctx, q.path, q.lockTimeout, func() error {
		if err := os.Remove(q.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", q.path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	q.logger.DebugContext(ctx, "queue cleared", logger.Path(q.path))
	return nil
}

// Clear deletes the queue id without creating the storage root.
func Clear(ctx context.Context, cfg Config, id string, opts ...Option) error {
	q, _, err := newQueue(id, cfg, opts...)
	if err != nil {
		return err
	}
	return q.Clear(ctx)
}

// Exists reports whether the queue id has a queue file.
func Exists(cfg Config, id string) (bool, error) {
	q, _, err := newQueue(id, cfg)
	if err != nil {
		return false, err
	}
	return q.Exists(), nil
}

// view runs fn on the current state inside one critical section.
func (q *Queue) view(ctx context.Context, timeout time.Duration, fn func(State) error) error {
	return q.store.WithLock(ctx, q.path, timeout, func() error {
		s, err := q.load()
		if err != nil {
			return err
		}
		return fn(s)
	})
}

// update replaces the state with the one returned by fn. A nil state with a
// nil error leaves the file untouched.
func (q *Queue) update(ctx context.Context, timeout time.Duration, fn func(State) (State, error)) error {
	return q.store.WithLock(ctx, q.path, timeout, func() error {
		s, err := q.load()
		if err != nil {
			return err
		}
		next, err := fn(s)
		if err != nil || next == nil {
			return err
		}
		return q.store.Write(q.path, next)
	})
}

// load reads the state, initialising an empty queue file when none exists.
// Must be called with the lock held.
func (q *Queue) load() (State, error) {
	var s State
	err := q.store.Read(q.path, &s)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s = State{}
		if err := q.store.Write(q.path, s); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, err
	}

	if s == nil {
		s = State{}
	}
	for i := range s {
		s[i].EnqueuedAt = s[i].EnqueuedAt.UTC()
	}
	return s, nil
}

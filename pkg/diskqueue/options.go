package diskqueue

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dmitrymomot/diskqueue/pkg/blobstore"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
)

// Option configures a Queue.
type Option func(*options)

type options struct {
	locker         filelock.Locker
	resolver       Resolver
	logger         *slog.Logger
	codec          blobstore.Codec
	overwrite      bool
	lockTimeout    time.Duration
	popLockTimeout time.Duration
	rand           *rand.Rand
	now            func() time.Time
}

// WithLocker sets the lock implementation. Defaults to a filelock.FileLocker.
// Every process sharing a queue must use compatible lockers.
func WithLocker(l filelock.Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithResolver sets the reference resolver. Defaults to DefaultRegistry.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithLogger sets the logger of the queue.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCodec overrides the encoding of the queue file.
func WithCodec(c blobstore.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithOverwrite deletes any existing queue with the same id on open.
func WithOverwrite(overwrite bool) Option {
	return func(o *options) {
		o.overwrite = overwrite
	}
}

// WithLockTimeout overrides Config.LockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithPopLockTimeout overrides Config.PopLockTimeout.
func WithPopLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.popLockTimeout = d
		}
	}
}

// WithRand sets the source used by Shuffle.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		if r != nil {
			o.rand = r
		}
	}
}

// withClock is used by tests to pin EnqueuedAt.
func withClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// TaskOption sets the arguments of an enqueued task.
type TaskOption func(*taskOptions)

type taskOptions struct {
	args   []any
	kwargs map[string]any
}

// WithArgs appends positional arguments.
func WithArgs(args ...any) TaskOption {
	return func(o *taskOptions) {
		o.args = append(o.args, args...)
	}
}

// WithKwarg sets one keyword argument.
func WithKwarg(name string, v any) TaskOption {
	return func(o *taskOptions) {
		if o.kwargs == nil {
			o.kwargs = make(map[string]any)
		}
		o.kwargs[name] = v
	}
}

// WithKwargs sets keyword arguments. Later values win.
func WithKwargs(kwargs map[string]any) TaskOption {
	return func(o *taskOptions) {
		if len(kwargs) == 0 {
			return
		}
		if o.kwargs == nil {
			o.kwargs = make(map[string]any, len(kwargs))
		}
		for k, v := range kwargs {
			o.kwargs[k] = v
		}
	}
}

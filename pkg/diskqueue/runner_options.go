package diskqueue

import "log/slog"

// RunnerOption configures a Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	maxAttempts  int
	raiseOnError bool
	follow       bool
	logger       *slog.Logger
	onFailure    func(Job, error)
	queueOptions []Option
}

// WithMaxAttempts sets how many failures a run tolerates before it stops.
// Successful jobs do not reset the count.
func WithMaxAttempts(n int) RunnerOption {
	return func(o *runnerOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRaiseOnError makes the first job failure stop the run. The failed job is
// not put back.
func WithRaiseOnError(raise bool) RunnerOption {
	return func(o *runnerOptions) {
		o.raiseOnError = raise
	}
}

// WithFollow keeps the runner waiting for new jobs instead of stopping when
// the queue is drained. The run then ends by exhaustion, error or abort.
func WithFollow(follow bool) RunnerOption {
	return func(o *runnerOptions) {
		o.follow = follow
	}
}

// WithRunnerLogger sets the logger for the runner
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(o *runnerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOnFailure registers a callback invoked for every failed job, including
// the one that stops a run under WithRaiseOnError.
func WithOnFailure(fn func(Job, error)) RunnerOption {
	return func(o *runnerOptions) {
		o.onFailure = fn
	}
}

// WithQueueOptions passes options to the queue opened by Run.
func WithQueueOptions(opts ...Option) RunnerOption {
	return func(o *runnerOptions) {
		o.queueOptions = append(o.queueOptions, opts...)
	}
}

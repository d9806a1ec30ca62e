package diskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/diskqueue/pkg/logger"
)

// StopReason tells why a run ended.
type StopReason string

const (
	// StopReasonDrained means the queue was empty.
	StopReasonDrained StopReason = "drained"
	// StopReasonExhausted means the failure budget was spent.
	StopReasonExhausted StopReason = "exhausted"
	// StopReasonAborted means the run was cancelled or a handler returned ErrAbort.
	StopReasonAborted StopReason = "aborted"
	// StopReasonError means a queue or job error ended the run.
	StopReasonError StopReason = "error"
)

// Result summarises a run.
type Result struct {
	Processed int
	Succeeded int
	Failed    int
	Reason    StopReason
}

func (res Result) attr() slog.Attr {
	return logger.Group("result",
		slog.Int("processed", res.Processed),
		slog.Int("succeeded", res.Succeeded),
		logger.Failures(res.Failed),
	)
}

// Runner drains a queue, executing one job at a time.
type Runner struct {
	queue        *Queue
	maxAttempts  int
	raiseOnError bool
	follow       bool
	logger       *slog.Logger
	onFailure    func(Job, error)
}

// NewRunner creates a runner for q.
func NewRunner(q *Queue, opts ...RunnerOption) (*Runner, error) {
	if q == nil {
		return nil, ErrQueueNil
	}
	return newRunner(q, applyRunnerOptions(DefaultMaxAttempts, opts)), nil
}

// Run opens the queue id and runs it until it is drained or the failure budget
// from cfg (or WithMaxAttempts) is spent.
func Run(ctx context.Context, id string, cfg Config, opts ...RunnerOption) (Result, error) {
	o := applyRunnerOptions(cfg.withDefaults().MaxAttempts, opts)
	q, err := New(ctx, id, cfg, o.queueOptions...)
	if err != nil {
		return Result{Reason: StopReasonError}, err
	}
	return newRunner(q, o).Run(ctx)
}

func applyRunnerOptions(maxAttempts int, opts []RunnerOption) *runnerOptions {
	o := &runnerOptions{
		maxAttempts: maxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newRunner(q *Queue, o *runnerOptions) *Runner {
	return &Runner{
		queue:        q,
		maxAttempts:  o.maxAttempts,
		raiseOnError: o.raiseOnError,
		follow:       o.follow,
		logger:       o.logger.With(logger.Component("runner"), logger.QueueID(q.ID())),
		onFailure:    o.onFailure,
	}
}

// Run pops and executes jobs until the queue is drained, the failure budget is
// spent, ctx is cancelled or an error must be propagated.
//
// Failed jobs are put back at the tail and counted. Aborted jobs are put back
// and the returned error wraps ErrAborted. Lock and storage errors are
// returned as is.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var res Result
	start := time.Now()
	r.logger.InfoContext(ctx, "runner started", logger.MaxAttempts(r.maxAttempts))

	for res.Failed < r.maxAttempts {
		if err := ctx.Err(); err != nil {
			res.Reason = StopReasonAborted
			return res, errors.Join(ErrAborted, err)
		}

		task, err := r.queue.PopTask(ctx)
		if err != nil {
			var unresolved *UnresolvedError
			if !errors.As(err, &unresolved) {
				if ctx.Err() != nil {
					res.Reason = StopReasonAborted
					return res, errors.Join(ErrAborted, err)
				}
				res.Reason = StopReasonError
				return res, err
			}
			res.Processed++
			if err := r.fail(ctx, &res, unresolved.Job, err); err != nil {
				res.Reason = StopReasonError
				return res, err
			}
			continue
		}

		if task == nil {
			if !r.follow {
				res.Reason = StopReasonDrained
				r.logger.InfoContext(ctx, "queue drained",
					res.attr(),
					logger.Duration(time.Since(start)))
				return res, nil
			}
			if err := r.queue.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					res.Reason = StopReasonAborted
					return res, errors.Join(ErrAborted, err)
				}
				res.Reason = StopReasonError
				return res, err
			}
			continue
		}

		res.Processed++
		err = r.execute(ctx, task)
		switch {
		case err == nil:
			res.Succeeded++
		case errors.Is(err, ErrAbort) || ctx.Err() != nil:
			res.Reason = StopReasonAborted
			return res, r.abort(ctx, task.Job, err)
		default:
			if err := r.fail(ctx, &res, task.Job, err); err != nil {
				res.Reason = StopReasonError
				return res, err
			}
		}
	}

	res.Reason = StopReasonExhausted
	r.logger.WarnContext(ctx, "failure budget exhausted",
		res.attr(),
		logger.MaxAttempts(r.maxAttempts),
		logger.Duration(time.Since(start)))
	return res, nil
}

// execute runs the task, turning a panic into an error.
func (r *Runner) execute(ctx context.Context, task *Task) (err error) {
	ctx = logger.ContextWithAttrs(ctx, logger.JobID(task.Job.ID), logger.JobRef(task.Job.Ref))
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanicked, p)
		}
		if err == nil {
			r.logger.InfoContext(ctx, "job succeeded", logger.Duration(time.Since(start)))
		}
	}()

	r.logger.DebugContext(ctx, "running job",
		slog.Any("args", task.Job.Args),
		slog.Any("kwargs", task.Job.Kwargs))
	return task.Run(ctx)
}

// fail handles a failed job. It returns an error only when the run must stop.
func (r *Runner) fail(ctx context.Context, res *Result, job Job, cause error) error {
	jobErr := &JobError{Job: job, Err: cause}
	log := r.logger.With(logger.JobID(job.ID), logger.JobRef(job.Ref))

	res.Failed++
	if r.onFailure != nil {
		r.onFailure(job, cause)
	}

	if r.raiseOnError {
		// An unresolved job is still put back: it never ran.
		if errors.Is(cause, ErrUnresolvableReference) {
			if err := r.queue.requeue(context.WithoutCancel(ctx), job); err != nil {
				log.ErrorContext(ctx, "failed to requeue job", logger.Errors(cause, err))
				return errors.Join(jobErr, err)
			}
		}
		log.ErrorContext(ctx, "job failed, stopping", logger.Error(cause), logger.Failures(res.Failed))
		return jobErr
	}

	log.ErrorContext(ctx, "job failed",
		logger.Error(cause),
		logger.Failures(res.Failed),
		logger.MaxAttempts(r.maxAttempts))

	if err := r.queue.requeue(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
	}
	return nil
}

// abort puts the job back and builds the error returned by Run.
func (r *Runner) abort(ctx context.Context, job Job, cause error) error {
	if err := r.queue.requeue(context.WithoutCancel(ctx), job); err != nil {
		r.logger.ErrorContext(ctx, "run aborted, job lost",
			logger.JobID(job.ID),
			logger.JobRef(job.Ref),
			logger.Errors(cause, err))
		return errors.Join(ErrAborted, cause, fmt.Errorf("failed to requeue job %s: %w", job.ID, err))
	}
	r.logger.WarnContext(ctx, "run aborted, job requeued",
		logger.JobID(job.ID),
		logger.JobRef(job.Ref),
		logger.Error(cause))
	return fmt.Errorf("%w: job %s requeued: %w", ErrAborted, job.ID, cause)
}

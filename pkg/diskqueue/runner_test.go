package diskqueue_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/diskqueue/pkg/diskqueue"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/logger"
)

func TestNewRunner_NilQueue(t *testing.T) {
	t.Parallel()

	r, err := diskqueue.NewRunner(nil)
	assert.ErrorIs(t, err, diskqueue.ErrQueueNil)
	assert.Nil(t, r)
}

func TestRunner_Drains(t *testing.T) {
	t.Parallel()

	c := newCounter()
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("ok", c.handler("ok", nil)))
	q := openQueue(t, testConfig(t), reg)
	ctx := context.Background()

	for range 3 {
		_, err := q.Enqueue(ctx, "ok", nil, nil)
		require.NoError(t, err)
	}

	res, err := newRunner(t, q).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, diskqueue.Result{Processed: 3, Succeeded: 3, Reason: diskqueue.StopReasonDrained}, res)
	assert.Equal(t, 3, c.count("ok"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunner_EmptyQueue(t *testing.T) {
	t.Parallel()

	q := openQueue(t, testConfig(t), diskqueue.NewRegistry())
	res, err := newRunner(t, q).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, diskqueue.StopReasonDrained, res.Reason)
	assert.Zero(t, res.Processed)
}

func TestRunner_RetryRequeue(t *testing.T) {
	t.Parallel()

	c := newCounter()
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("fail", c.handler("fail", errBoom)))
	q := openQueue(t, testConfig(t), reg)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "fail", nil, nil)
	require.NoError(t, err)

	var failures []error
	res, err := newRunner(t, q,
		diskqueue.WithMaxAttempts(3),
		diskqueue.WithOnFailure(func(_ diskqueue.Job, err error) { failures = append(failures, err) }),
	).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, diskqueue.StopReasonExhausted, res.Reason)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 3, c.count("fail"))
	require.Len(t, failures, 3)
	for _, f := range failures {
		assert.ErrorIs(t, f, errBoom)
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the failing job stays pending")
}

func TestRunner_MixedJobsExhaustion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		maxAttempts int
		sequence    []string
		pending     []string
		succeeded   int
	}{
		{
			name:        "max attempts 1 stops before B",
			maxAttempts: 1,
			sequence:    []string{"A"},
			pending:     []string{"B", "A"},
		},
		{
			name:        "max attempts 2 runs B between failures",
			maxAttempts: 2,
			sequence:    []string{"A", "B", "A"},
			pending:     []string{"A"},
			succeeded:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newCounter()
			reg := diskqueue.NewRegistry()
			require.NoError(t, reg.RegisterNamed("A", c.handler("A", errBoom)))
			require.NoError(t, reg.RegisterNamed("B", c.handler("B", nil)))
			q := openQueue(t, testConfig(t), reg)
			ctx := context.Background()

			for _, ref := range []string{"A", "B"} {
				_, err := q.Enqueue(ctx, ref, nil, nil)
				require.NoError(t, err)
			}

			res, err := newRunner(t, q, diskqueue.WithMaxAttempts(tt.maxAttempts)).Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, diskqueue.StopReasonExhausted, res.Reason)
			assert.Equal(t, tt.maxAttempts, res.Failed)
			assert.Equal(t, tt.succeeded, res.Succeeded)
			assert.Equal(t, tt.sequence, c.sequence())
			assert.Equal(t, tt.pending, refs(t, q))
		})
	}
}

// The failure count spans the whole run: a success in between does not reset it.
func TestRunner_FailureCounterNotResetBySuccess(t *testing.T) {
	t.Parallel()

	c := newCounter()
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("fail-1", c.handler("fail-1", errBoom)))
	require.NoError(t, reg.RegisterNamed("ok", c.handler("ok", nil)))
	require.NoError(t, reg.RegisterNamed("fail-2", c.handler("fail-2", errBoom)))
	q := openQueue(t, testConfig(t), reg)
	ctx := context.Background()

	for _, ref := range []string{"fail-1", "ok", "ok", "fail-2", "ok"} {
		_, err := q.Enqueue(ctx, ref, nil, nil)
		require.NoError(t, err)
	}

	res, err := newRunner(t, q, diskqueue.WithMaxAttempts(2)).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, diskqueue.StopReasonExhausted, res.Reason)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, []string{"fail-1", "ok", "ok", "fail-2"}, c.sequence())
	assert.Equal(t, []string{"ok", "fail-1", "fail-2"}, refs(t, q))
}

func TestRunner_RaiseOnError(t *testing.T) {
	t.Parallel()

	c := newCounter()
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("fail", c.handler("fail", errBoom)))
	require.NoError(t, reg.RegisterNamed("ok", c.handler("ok", nil)))
	q := openQueue(t, testConfig(t), reg)
	ctx := context.Background()

	failing, err := q.Enqueue(ctx, "fail", []any{"payload"}, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "ok", nil, nil)
	require.NoError(t, err)

	var failures []error
	res, err := newRunner(t, q,
		diskqueue.WithRaiseOnError(true),
		diskqueue.WithOnFailure(func(_ diskqueue.Job, err error) { failures = append(failures, err) }),
	).Run(ctx)
	require.ErrorIs(t, err, errBoom)

	var jobErr *diskqueue.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, failing.ID, jobErr.Job.ID)
	assert.Equal(t, diskqueue.StopReasonError, res.Reason)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], errBoom)
	assert.Zero(t, c.count("ok"))

	assert.Equal(t, []string{"ok"}, refs(t, q), "the failed job is not put back")
}

func TestRunner_Abort(t *testing.T) {
	t.Parallel()

	t.Run("handler returns ErrAbort", func(t *testing.T) {
		t.Parallel()

		reg := diskqueue.NewRegistry()
		require.NoError(t, reg.RegisterNamed("stop", func(context.Context, diskqueue.Args) error {
			return diskqueue.ErrAbort
		}))
		q := openQueue(t, testConfig(t), reg)
		ctx := context.Background()

		job, err := q.Enqueue(ctx, "stop", []any{"keep me"}, nil)
		require.NoError(t, err)

		res, err := newRunner(t, q).Run(ctx)
		assert.ErrorIs(t, err, diskqueue.ErrAborted)
		assert.ErrorIs(t, err, diskqueue.ErrAbort)
		assert.Equal(t, diskqueue.StopReasonAborted, res.Reason)
		assert.Zero(t, res.Failed, "aborts are not failures")

		got, err := q.Get(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, []any{"keep me"}, got.Args)
	})

	t.Run("context cancelled during execution", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := newCounter()
		reg := diskqueue.NewRegistry()
		require.NoError(t, reg.RegisterNamed("slow", func(ctx context.Context, _ diskqueue.Args) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}))
		require.NoError(t, reg.RegisterNamed("next", c.handler("next", nil)))
		q := openQueue(t, testConfig(t), reg)

		for _, ref := range []string{"slow", "next"} {
			_, err := q.Enqueue(context.Background(), ref, nil, nil)
			require.NoError(t, err)
		}

		res, err := newRunner(t, q).Run(ctx)
		assert.ErrorIs(t, err, diskqueue.ErrAborted)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, diskqueue.StopReasonAborted, res.Reason)
		assert.Zero(t, c.count("next"))
		assert.Equal(t, []string{"next", "slow"}, refs(t, q))
	})

	t.Run("context cancelled before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		q := openQueue(t, testConfig(t), diskqueue.NewRegistry())
		_, err := q.Enqueue(context.Background(), "anything", nil, nil)
		require.NoError(t, err)

		res, err := newRunner(t, q).Run(ctx)
		assert.ErrorIs(t, err, diskqueue.ErrAborted)
		assert.Zero(t, res.Processed)
		assert.Equal(t, []string{"anything"}, refs(t, q))
	})
}

func TestRunner_UnresolvableReference(t *testing.T) {
	t.Parallel()

	t.Run("counted and requeued", func(t *testing.T) {
		t.Parallel()

		q := openQueue(t, testConfig(t), diskqueue.NewRegistry())
		ctx := context.Background()
		_, err := q.Enqueue(ctx, "gone.Handler", nil, nil)
		require.NoError(t, err)

		var causes []error
		res, err := newRunner(t, q,
			diskqueue.WithMaxAttempts(2),
			diskqueue.WithOnFailure(func(_ diskqueue.Job, err error) { causes = append(causes, err) }),
		).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Failed)
		assert.Equal(t, diskqueue.StopReasonExhausted, res.Reason)
		require.Len(t, causes, 2)
		assert.ErrorIs(t, causes[0], diskqueue.ErrUnresolvableReference)
		assert.Equal(t, []string{"gone.Handler"}, refs(t, q))
	})

	t.Run("raised and requeued", func(t *testing.T) {
		t.Parallel()

		q := openQueue(t, testConfig(t), diskqueue.NewRegistry())
		ctx := context.Background()
		_, err := q.Enqueue(ctx, "gone.Handler", nil, nil)
		require.NoError(t, err)

		res, err := newRunner(t, q, diskqueue.WithRaiseOnError(true)).Run(ctx)
		assert.ErrorIs(t, err, diskqueue.ErrUnresolvableReference)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, []string{"gone.Handler"}, refs(t, q))
	})
}

func TestRunner_PanicIsFailure(t *testing.T) {
	t.Parallel()

	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("panic", func(context.Context, diskqueue.Args) error {
		panic("handler exploded")
	}))
	q := openQueue(t, testConfig(t), reg)
	ctx := context.Background()
	_, err := q.Enqueue(ctx, "panic", nil, nil)
	require.NoError(t, err)

	var cause error
	res, err := newRunner(t, q,
		diskqueue.WithMaxAttempts(1),
		diskqueue.WithOnFailure(func(_ diskqueue.Job, err error) { cause = err }),
	).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.ErrorIs(t, cause, diskqueue.ErrJobPanicked)
	assert.Contains(t, cause.Error(), "handler exploded")
}

func TestRunner_HandlerContext(t *testing.T) {
	t.Parallel()

	var (
		gotArgs  diskqueue.Args
		gotAttrs map[string]string
	)
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("inspect", func(ctx context.Context, args diskqueue.Args) error {
		gotArgs = args
		gotAttrs = make(map[string]string)
		for _, a := range logger.AttrsFromContext(ctx) {
			gotAttrs[a.Key] = a.Value.String()
		}
		return nil
	}))
	q := openQueue(t, testConfig(t), reg)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "inspect", []any{"x", 2}, map[string]any{"dry_run": true})
	require.NoError(t, err)

	_, err = newRunner(t, q).Run(ctx)
	require.NoError(t, err)

	s, err := gotArgs.String(0)
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	n, err := gotArgs.Int(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	dry, err := gotArgs.KwBool("dry_run")
	require.NoError(t, err)
	assert.True(t, dry)

	assert.Equal(t, job.ID.String(), gotAttrs["job_id"])
	assert.Equal(t, "inspect", gotAttrs["job_ref"])
}

func TestRunner_Follow(t *testing.T) {
	t.Parallel()

	done := make(chan string, 1)
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("late", func(_ context.Context, args diskqueue.Args) error {
		s, err := args.String(0)
		done <- s
		return err
	}))
	cfg := testConfig(t)
	q := openQueue(t, cfg, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type outcome struct {
		res diskqueue.Result
		err error
	}
	out := make(chan outcome, 1)
	runner := newRunner(t, q, diskqueue.WithFollow(true))
	go func() {
		res, err := runner.Run(ctx)
		out <- outcome{res, err}
	}()

	// A separate handle plays the producer process.
	producer := openQueue(t, cfg, reg)
	time.Sleep(50 * time.Millisecond)
	_, err := producer.Enqueue(context.Background(), "late", []any{"hello"}, nil)
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, "hello", got)
	case <-time.After(5 * time.Second):
		t.Fatal("follow mode did not pick up the new job")
	}

	cancel()
	select {
	case o := <-out:
		assert.ErrorIs(t, o.err, diskqueue.ErrAborted)
		assert.Equal(t, diskqueue.StopReasonAborted, o.res.Reason)
		assert.Equal(t, 1, o.res.Succeeded)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	c := newCounter()
	reg := diskqueue.NewRegistry()
	require.NoError(t, reg.RegisterNamed("fail", c.handler("fail", errBoom)))

	cfg := testConfig(t)
	cfg.MaxAttempts = 4
	q := openQueue(t, cfg, reg)
	_, err := q.Enqueue(context.Background(), "fail", nil, nil)
	require.NoError(t, err)

	res, err := diskqueue.Run(context.Background(), "jobs", cfg,
		diskqueue.WithRunnerLogger(logger.Discard()),
		diskqueue.WithQueueOptions(
			diskqueue.WithResolver(reg),
			diskqueue.WithLogger(logger.Discard())))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Failed)
	assert.Equal(t, 4, c.count("fail"))

	res, err = diskqueue.Run(context.Background(), "jobs", cfg,
		diskqueue.WithMaxAttempts(1),
		diskqueue.WithRunnerLogger(logger.Discard()),
		diskqueue.WithQueueOptions(diskqueue.WithResolver(reg)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	_, err = diskqueue.Run(context.Background(), "bad/id", cfg)
	assert.True(t, errors.Is(err, diskqueue.ErrInvalidID))
}

func logRecords(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()
	records := make(map[string]map[string]any)
	dec := json.NewDecoder(buf)
	for {
		var rec map[string]any
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records
		}
		require.NoError(t, err)
		records[rec["msg"].(string)] = rec
	}
}

func TestRunner_Logs(t *testing.T) {
	t.Parallel()

	t.Run("drained summary", func(t *testing.T) {
		t.Parallel()

		c := newCounter()
		reg := diskqueue.NewRegistry()
		require.NoError(t, reg.RegisterNamed("ok", c.handler("ok", nil)))
		q := openQueue(t, testConfig(t), reg)
		ctx := context.Background()
		for range 2 {
			_, err := q.Enqueue(ctx, "ok", nil, nil)
			require.NoError(t, err)
		}

		buf := &bytes.Buffer{}
		_, err := newRunner(t, q, diskqueue.WithRunnerLogger(logger.New(logger.WithOutput(buf)))).Run(ctx)
		require.NoError(t, err)

		rec, ok := logRecords(t, buf)["queue drained"]
		require.True(t, ok)
		assert.Equal(t, map[string]any{
			"processed": float64(2),
			"succeeded": float64(2),
			"failures":  float64(0),
		}, rec["result"])
	})

	t.Run("abort with requeue failure", func(t *testing.T) {
		t.Parallel()

		lk := &breakableLocker{Locker: filelock.NewMemoryLocker()}
		reg := diskqueue.NewRegistry()
		require.NoError(t, reg.RegisterNamed("stop", func(context.Context, diskqueue.Args) error {
			lk.broken.Store(true)
			return diskqueue.ErrAbort
		}))
		q := openQueue(t, testConfig(t), reg, diskqueue.WithLocker(lk))
		ctx := context.Background()
		_, err := q.Enqueue(ctx, "stop", nil, nil)
		require.NoError(t, err)

		buf := &bytes.Buffer{}
		res, err := newRunner(t, q, diskqueue.WithRunnerLogger(logger.New(logger.WithOutput(buf)))).Run(ctx)
		assert.ErrorIs(t, err, diskqueue.ErrAborted)
		assert.ErrorIs(t, err, errLockerDown)
		assert.Equal(t, diskqueue.StopReasonAborted, res.Reason)

		rec, ok := logRecords(t, buf)["run aborted, job lost"]
		require.True(t, ok)
		errs, ok := rec["errors"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, diskqueue.ErrAbort.Error(), errs["0"])
		assert.Contains(t, errs["1"], errLockerDown.Error())
	})
}

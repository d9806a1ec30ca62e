// Package diskqueue implements a durable FIFO work queue backed by a single
// file per queue identifier.
//
// Producers append deferred invocations (a handler reference plus
// arguments) with Queue.AddTask or Queue.Enqueue. A Runner pops jobs one at a
// time, executes them outside any lock and re-appends failed jobs at the tail
// until its failure budget is spent.
//
// Every operation re-reads the queue file inside its own critical section, so
// independent processes can share a queue as long as they use the same
// filelock.Locker implementation. No operation is atomic with another.
//
// # Handlers
//
// Handlers are plain functions registered under a reference:
//
//	func SendEmail(ctx context.Context, args diskqueue.Args) error {
//		to, err := args.String(0)
//		if err != nil {
//			return err
//		}
//		return mailer.Send(ctx, to)
//	}
//
//	func init() { diskqueue.Register(SendEmail) }
//
// The reference of a function registered with Register is its fully
// qualified runtime name, so the enqueuing and the running process must both
// link and register the same function.
//
// # Retries
//
// The failure counter of a Runner counts every failure seen during one Run
// and is not reset by a successful job. WithMaxAttempts therefore bounds the
// total number of failures of a run, not a streak.
//
// # Aborting
//
// Cancelling the context passed to Runner.Run, or returning ErrAbort from a
// handler, puts the current job back at the tail and stops the run with an
// error wrapping ErrAborted. Aborts never count as failures.
package diskqueue

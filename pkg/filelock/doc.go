// Package filelock provides the exclusive advisory lock used to serialise
// access to queue files across processes.
//
// The package is organised around the Locker interface. A Locker hands out a
// Lock Token (an Unlock func) for a protected path and guarantees that at most
// one holder exists per path at any time. Acquisition is bounded: when the lock
// cannot be obtained within the supplied timeout, ErrLockTimeout is returned
// instead of blocking forever.
//
// Three implementations are provided:
//
//   - FileLocker: flock(2) based lock on "<path>.lock" (github.com/gofrs/flock)
//   - MemoryLocker: in-process lock keyed by path, useful in tests
//   - RedisLocker: SET NX lease in Redis for queue directories shared over a
//     network filesystem where flock is unreliable
//
// # Exclusive only
//
// Every Locker provides mutual exclusion only. There is no shared/read mode:
// readers and writers queue up behind the same lock. Callers must not assume
// that concurrent reads of the same path can proceed in parallel.
//
// # Usage
//
//	locker := filelock.NewFileLocker()
//	unlock, err := locker.Acquire(ctx, "/var/cache/queue/emails.dq", 5*time.Second)
//	if err != nil {
//	    return err // errors.Is(err, filelock.ErrLockTimeout) on timeout
//	}
//	defer unlock()
package filelock

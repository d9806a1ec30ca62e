package filelock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKeyPrefix namespaces lock keys in a shared Redis database.
	DefaultRedisKeyPrefix = "diskqueue:lock:"

	// DefaultRedisLease bounds how long a crashed holder can keep a lock.
	DefaultRedisLease = 30 * time.Second
)

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker storing leases in Redis.
//
// It is meant for hosts that share a queue directory over a network
// filesystem where flock(2) does not provide exclusion. Every lease expires
// after the configured lease duration so a crashed holder cannot block the
// queue forever; critical sections must be shorter than the lease.
type RedisLocker struct {
	client     redis.UniversalClient
	prefix     string
	lease      time.Duration
	retryDelay time.Duration
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*RedisLocker)

// WithKeyPrefix sets the prefix prepended to every lock key.
func WithKeyPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithLease sets the lease duration of every lock.
func WithLease(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.lease = d
		}
	}
}

// WithRedisRetryDelay sets how often a contended lock is retried.
func WithRedisRetryDelay(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

// NewRedisLocker creates a Redis backed locker.
func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:     client,
		prefix:     DefaultRedisKeyPrefix,
		lease:      DefaultRedisLease,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, path string, timeout time.Duration) (Unlock, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	timeout = timeoutOrDefault(timeout)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	key := l.key(path)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(lockCtx, key, token, l.lease).Result()
		if err != nil && lockCtx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire redis lock %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(key, token), nil
		}

		select {
		case <-lockCtx.Done():
			return nil, acquireErr(ctx, path, timeout, lockCtx.Err())
		case <-ticker.C:
		}
	}
}

// unlockFunc returns ErrNotHeld when the lease expired before release.
func (l *RedisLocker) unlockFunc(key, token string) Unlock {
	var once sync.Once
	return func() error {
		var releaseErr error
		once.Do(func() {
			// Release must succeed even when the caller's context is already done.
			ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
			defer cancel()

			n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				releaseErr = fmt.Errorf("failed to release redis lock %s: %w", key, err)
			case n == 0:
				releaseErr = ErrNotHeld
			}
		})
		return releaseErr
	}
}

func (l *RedisLocker) key(path string) string {
	return l.prefix + LockPath(path)
}

// Client returns the underlying Redis client.
func (l *RedisLocker) Client() redis.UniversalClient {
	return l.client
}

// Prefix returns the key prefix of lock keys.
func (l *RedisLocker) Prefix() string {
	return l.prefix
}

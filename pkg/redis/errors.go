package redis

import "errors"

var (
	// ErrEmptyConnectionURL is returned by Connect when Redis locking is disabled.
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	// ErrFailedToParseRedisConnString wraps a malformed DISKQUEUE_REDIS_URL.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	// ErrRedisNotReady means no connection attempt succeeded.
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")
	// ErrLockBackendUnhealthy means the server rejected the writes lock
	// acquisition depends on.
	ErrLockBackendUnhealthy = errors.New("redis lock backend unhealthy")
)

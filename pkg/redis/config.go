package redis

import "time"

// Config describes the Redis server used as a lock backend.
type Config struct {
	ConnectionURL  string        `env:"DISKQUEUE_REDIS_URL" yaml:"url"`                                         // ConnectionURL in the format "redis://:password@localhost:6379/0". Empty disables Redis.
	KeyPrefix      string        `env:"DISKQUEUE_REDIS_KEY_PREFIX" envDefault:"diskqueue:lock:" yaml:"key_prefix"` // KeyPrefix namespaces lock keys.
	LockLease      time.Duration `env:"DISKQUEUE_REDIS_LOCK_LEASE" envDefault:"30s" yaml:"lock_lease"`            // LockLease bounds how long a crashed holder keeps a lock.
	RetryAttempts  int           `env:"DISKQUEUE_REDIS_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`      // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"DISKQUEUE_REDIS_RETRY_INTERVAL" envDefault:"1s" yaml:"retry_interval"`     // RetryInterval is the delay between connection attempts.
	ConnectTimeout time.Duration `env:"DISKQUEUE_REDIS_CONNECT_TIMEOUT" envDefault:"10s" yaml:"connect_timeout"`  // ConnectTimeout bounds all connection attempts together.
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool {
	return c.ConnectionURL != ""
}

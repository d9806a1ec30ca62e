// Package redis connects to the Redis server backing filelock.RedisLocker.
//
// Configuration is described by Config, populated from DISKQUEUE_REDIS_*
// environment variables via github.com/caarlos0/env. An empty URL means Redis
// is not used and queues fall back to file locks.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	locker := filelock.NewRedisLocker(client,
//		filelock.WithKeyPrefix(cfg.KeyPrefix),
//		filelock.WithLease(cfg.LockLease))
//
// Sentinel errors wrap the go-redis errors with errors.Join.
package redis

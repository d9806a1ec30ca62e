package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const healthcheckTTL = 5 * time.Second

// Healthcheck returns a check that the server accepts the SET NX PX and DEL
// round trip that RedisLocker uses. The check key lives under prefix, outside
// the lock key namespace, and expires on its own if the delete is lost.
func Healthcheck(client redis.UniversalClient, prefix string) func(context.Context) error {
	return func(ctx context.Context) error {
		key := prefix + "healthcheck:" + uuid.NewString()

		ok, err := client.SetNX(ctx, key, "1", healthcheckTTL).Result()
		if err != nil {
			return errors.Join(ErrLockBackendUnhealthy, err)
		}
		if !ok {
			return fmt.Errorf("%w: key %s already set", ErrLockBackendUnhealthy, key)
		}
		if err := client.Del(ctx, key).Err(); err != nil {
			return errors.Join(ErrLockBackendUnhealthy, err)
		}
		return nil
	}
}

package redis

import (
	"context"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/diskqueue/pkg/filelock"
)

const scanBatchSize = 100

// HeldLocks returns the data file paths whose lock key under prefix currently
// exists, sorted. Keys without the lock suffix are ignored. It uses SCAN so it does not block the server.
func HeldLocks(ctx context.Context, client redis.UniversalClient, prefix string) ([]string, error) {
	var (
		paths  []string
		cursor uint64
	)
	for {
		batch, next, err := client.Scan(ctx, cursor, prefix+"*"+filelock.LockSuffix, scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range batch {
			paths = append(paths, strings.TrimSuffix(strings.TrimPrefix(key, prefix), filelock.LockSuffix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrymomot/diskqueue/pkg/filelock"
)

// DefaultMaxDepth is the default number of missing ancestors MakeDirIfNecessary
// is allowed to create below the first existing one.
const DefaultMaxDepth = 3

// EnsureRoot creates the root directory if necessary.
func (p Paths) EnsureRoot(ctx context.Context, locker filelock.Locker, maxDepth int) error {
	return MakeDirIfNecessary(ctx, locker, p.root, maxDepth)
}

// MakeDirIfNecessary creates dir and up to maxDepth missing parents.
//
// Each directory is created while holding the lock for its own path (the lock
// artifact lives in the parent, which exists by then). Creating a directory
// that appeared in the meantime is not an error.
func MakeDirIfNecessary(ctx context.Context, locker filelock.Locker, dir string, maxDepth int) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrNotDirectory, dir)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if maxDepth < 0 {
		return fmt.Errorf("%w: %s", ErrTooDeep, dir)
	}

	parent := filepath.Dir(dir)
	if parent != dir {
		if err := MakeDirIfNecessary(ctx, locker, parent, maxDepth-1); err != nil {
			return err
		}
	}

	unlock, err := locker.Acquire(ctx, dir, filelock.DefaultTimeout)
	if err != nil {
		return fmt.Errorf("failed to lock %s for creation: %w", dir, err)
	}
	defer unlock()

	if err := os.Mkdir(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

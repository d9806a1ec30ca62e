package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/logger"
)

// Store reads and writes values at file paths.
type Store struct {
	codec   Codec
	locker  filelock.Locker
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCodec overrides the default MsgpackCodec.
func WithCodec(c Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithTimeout sets the lock timeout used by LockedRead and LockedWrite.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for critical-section timings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store guarded by locker.
func New(locker filelock.Locker, opts ...Option) (*Store, error) {
	if locker == nil {
		return nil, ErrLockerNil
	}
	s := &Store{
		codec:   MsgpackCodec{},
		locker:  locker,
		timeout: filelock.DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Normalize encodes in and decodes the result into out, leaving out in the
// shape a later Read would return.
func (s *Store) Normalize(in, out any) error {
	data, err := s.codec.Encode(in)
	if err != nil {
		return fmt.Errorf("failed to encode %T: %w", in, err)
	}
	if err := s.codec.Decode(data, out); err != nil {
		return fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return nil
}

// Write encodes v and atomically replaces the file at path.
func (s *Store) Write(path string, v any) error {
	data, err := seal(s.codec, v)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Read decodes the file at path into v.
func (s *Store) Read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrCorruptOrMissing, err)
	}
	if err := open(s.codec, data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Exists reports whether a file exists at path.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LockedWrite is Write inside the critical section of path.
func (s *Store) LockedWrite(ctx context.Context, path string, v any) error {
	return s.WithLock(ctx, path, s.timeout, func() error {
		return s.Write(path, v)
	})
}

// LockedRead is Read inside the critical section of path.
func (s *Store) LockedRead(ctx context.Context, path string, v any) error {
	return s.WithLock(ctx, path, s.timeout, func() error {
		return s.Read(path, v)
	})
}

// WithLock runs fn while holding the lock for path. The lock is released when
// fn returns, panics included. A non-positive timeout selects the store default.
func (s *Store) WithLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		timeout = s.timeout
	}
	unlock, err := s.locker.Acquire(ctx, path, timeout)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		if err := unlock(); err != nil {
			s.logger.WarnContext(ctx, "failed to release lock", logger.Path(path), logger.Error(err))
		}
		s.logger.DebugContext(ctx, "critical section done",
			logger.Path(path),
			logger.Duration(time.Since(start)))
	}()

	return fn()
}

package diskqueue

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherClosed is returned by Wait when the filesystem watcher stops.
var ErrWatcherClosed = errors.New("queue watcher closed")

// Wait blocks until the queue has pending jobs or ctx is done. It returns
// immediately when the queue is not empty, otherwise it waits for the queue
// file to be written by any process.
//
// A nil return is a hint, not a guarantee: another consumer may take the job
// first.
func (q *Queue) Wait(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(q.paths.Root()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", q.paths.Root(), err)
	}

	// The watch is set up before checking, so a write in between is not lost.
	n, err := q.Len(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	name := filepath.Base(q.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			n, err := q.Len(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			return fmt.Errorf("queue watcher: %w", err)
		}
	}
}

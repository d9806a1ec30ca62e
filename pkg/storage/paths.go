package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/diskqueue/pkg/filelock"
)

// DefaultExt is the extension of queue data files, including the leading dot.
const DefaultExt = ".dq"

// Paths resolves queue identifiers to absolute file paths under one root.
type Paths struct {
	root string
	ext  string
}

// New returns a resolver rooted at root. A relative root is made absolute
// against the current working directory. An empty ext selects DefaultExt.
func New(root, ext string) (Paths, error) {
	if root == "" {
		return Paths{}, ErrEmptyRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve storage root %q: %w", root, err)
	}
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Paths{root: abs, ext: ext}, nil
}

// Root returns the absolute root directory.
func (p Paths) Root() string {
	return p.root
}

// Ext returns the data file extension, including the leading dot.
func (p Paths) Ext() string {
	return p.ext
}

// Path returns the data file path for the queue id.
func (p Paths) Path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(p.root, id+p.ext), nil
}

// LockPath returns the lock artifact path for the queue id.
func (p Paths) LockPath(id string) (string, error) {
	path, err := p.Path(id)
	if err != nil {
		return "", err
	}
	return filelock.LockPath(path), nil
}

// ValidateID reports whether id can be used as a queue file name.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	case strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidID, id)
	}
	return nil
}

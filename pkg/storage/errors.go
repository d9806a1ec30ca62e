package storage

import "errors"

var (
	// ErrInvalidID is returned for queue identifiers that cannot be used as file names
	ErrInvalidID = errors.New("invalid queue id")

	// ErrEmptyRoot is returned when no root directory is configured
	ErrEmptyRoot = errors.New("storage root directory is not set")

	// ErrTooDeep is returned when creating the root would require too many nested directories
	ErrTooDeep = errors.New("too many nested directories to create")

	// ErrNotDirectory is returned when the root path exists but is not a directory
	ErrNotDirectory = errors.New("path exists but is not a directory")
)

package blobstore

import "errors"

var (
	// ErrCorruptOrMissing is returned when a stored value does not exist or cannot be decoded
	ErrCorruptOrMissing = errors.New("stored value is corrupt or missing")

	// ErrLockerNil is returned when a store is created without a locker
	ErrLockerNil = errors.New("locker cannot be nil")
)

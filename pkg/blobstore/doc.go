// Package blobstore reads and writes a single serialisable value per file,
// optionally inside the critical section of a filelock.Locker.
//
// Values are encoded by a Codec and wrapped in a small envelope: a 4 byte
// magic ("DSKQ") followed by the codec version byte and the payload. Files
// written by an incompatible codec version are reported as corrupt instead of
// being decoded into garbage.
//
// Write replaces the target atomically: the payload goes to a temporary file
// in the same directory which is synced and then renamed over the target, so
// readers never observe a partially written value.
//
// Read reports ErrCorruptOrMissing when the file is absent or cannot be
// decoded; callers decide whether an absent file means "empty".
package blobstore

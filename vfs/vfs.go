// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package vfs defines the byte-addressable sink the record File Writer
// treats as an external collaborator: raw append, positioned append,
// flush, sync, range-sync, truncate and close, plus an end-to-end handoff
// checksum handshake, along with the direct-I/O and verification-checksum
// hooks RocksDB's FSWritableFile exposes.
package vfs

import "github.com/cockroachdb/errors"

// ErrNotSyncThreadSafe is returned by FileWriter.SyncWithoutFlush when the
// underlying file does not support concurrent syncs.
var ErrNotSyncThreadSafe = errors.New("vfs: file does not support thread-safe Sync")

// VerificationInfo carries an optional end-to-end handoff checksum alongside
// a write, so the sink can verify the bytes it received against the bytes
// the writer intended to send. A zero-value VerificationInfo (nil Checksum)
// means no checksum is being handed off.
type VerificationInfo struct {
	// Checksum is the little-endian-encoded CRC32C of the exact bytes being
	// appended, or nil if verification is not in use for this call.
	Checksum []byte
}

// File is a writable, byte-addressable sink. Typically backed by an
// *os.File, but tests substitute an in-memory implementation.
//
// File is not required to be safe for concurrent use except where a method's
// documentation says otherwise (IsSyncThreadSafe).
type File interface {
	// PrepareWrite is an advisory hint that size bytes are about to be
	// appended at the given logical offset. Implementations may use this to
	// preallocate storage; it never fails.
	PrepareWrite(offset int64, size int)

	// Append writes p to the end of the file, optionally carrying a handoff
	// checksum for verification. It returns the number of bytes written.
	Append(p []byte, v VerificationInfo) (int, error)

	// PositionedAppend writes p at the given absolute offset, which direct
	// I/O implementations require to be aligned. It optionally carries a
	// handoff checksum.
	PositionedAppend(p []byte, offset int64, v VerificationInfo) (int, error)

	// Flush pushes any data buffered by the File implementation itself (as
	// opposed to the File Writer's own buffer) out to the OS.
	Flush() error

	// Sync durably persists previously written data, without forcing
	// metadata (mtime, size) to disk.
	Sync() error

	// Fsync durably persists previously written data and file metadata.
	Fsync() error

	// RangeSync hints that the byte range [offset, offset+length) should be
	// written back to storage. Implementations without a range-sync
	// primitive perform a full data sync instead.
	RangeSync(offset, length int64) error

	// Truncate sets the file's logical size, used by direct I/O writers to
	// trim the page-rounded tail written during the last flush.
	Truncate(size int64) error

	// Close releases the file's resources. Close is idempotent.
	Close() error

	// Size returns the file's current logical size.
	Size() (int64, error)

	// IsSyncThreadSafe reports whether Sync/Fsync may be called
	// concurrently with Append/PositionedAppend on this file. When false,
	// FileWriter.SyncWithoutFlush returns ErrNotSyncThreadSafe.
	IsSyncThreadSafe() bool
}

// FS creates and opens Files by name.
type FS interface {
	// Create creates the named file for writing, truncating it if it
	// already exists. When useDirectIO is true, the returned File requires
	// all PositionedAppend calls to be aligned to Alignment().
	Create(name string, useDirectIO bool) (File, error)

	// Open opens the named file for reading.
	Open(name string) (File, error)

	// Remove removes the named file.
	Remove(name string) error

	// Alignment returns the page alignment Files from this FS require for
	// direct I/O positioned writes.
	Alignment() int
}

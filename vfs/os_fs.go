// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import (
	"os"

	"github.com/cockroachdb/errors"
)

// DefaultAlignment is the page alignment required for direct I/O positioned
// writes when the platform doesn't expose a more precise value.
const DefaultAlignment = 4096

// Default is an FS implementation backed by the operating system's file
// system.
var Default FS = osFS{}

type osFS struct{}

func (osFS) Create(name string, useDirectIO bool) (File, error) {
	f, err := createOSFile(name, useDirectIO)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: create %q", name)
	}
	return f, nil
}

func (osFS) Open(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: open %q", name)
	}
	return &osFile{File: f}, nil
}

func (osFS) Remove(name string) error {
	return errors.WithStack(os.Remove(name))
}

func (osFS) Alignment() int {
	return DefaultAlignment
}

// osFile is the portable part of the *os.File-backed File implementation;
// platform files (os_file_linux.go / os_file_other.go) embed it and supply
// direct I/O, range-sync and preallocation semantics.
type osFile struct {
	*os.File
	directIO bool
}

func (f *osFile) PrepareWrite(offset int64, size int) {
	if !f.directIO || size <= 0 {
		return
	}
	// Best effort: a failed preallocation just means the subsequent write
	// falls back to on-demand block allocation.
	_ = f.Preallocate(offset, int64(size))
}

func (f *osFile) Append(p []byte, _ VerificationInfo) (int, error) {
	n, err := f.Write(p)
	return n, errors.WithStack(err)
}

func (f *osFile) PositionedAppend(p []byte, offset int64, _ VerificationInfo) (int, error) {
	n, err := f.WriteAt(p, offset)
	return n, errors.WithStack(err)
}

func (f *osFile) Flush() error {
	return nil
}

func (f *osFile) Truncate(size int64) error {
	return errors.WithStack(f.File.Truncate(size))
}

func (f *osFile) Size() (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return fi.Size(), nil
}

func (f *osFile) Close() error {
	if err := f.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return errors.WithStack(err)
	}
	return nil
}

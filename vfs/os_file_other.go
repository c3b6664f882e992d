// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !linux

package vfs

import (
	"os"

	"github.com/cockroachdb/errors"
)

// createOSFile is the portable fallback used on platforms without O_DIRECT,
// fallocate or sync_file_range. useDirectIO is accepted but ignored, since
// direct I/O support is never advertised outside Linux.
func createOSFile(name string, useDirectIO bool) (*osFile, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &osFile{File: f, directIO: false}, nil
}

func (f *osFile) Sync() error {
	return errors.WithStack(f.File.Sync())
}

func (f *osFile) Fsync() error {
	return errors.WithStack(f.File.Sync())
}

// RangeSync has no portable equivalent to sync_file_range; degrade to a full
// sync rather than silently drop the durability hint.
func (f *osFile) RangeSync(offset, length int64) error {
	return f.Sync()
}

func (f *osFile) IsSyncThreadSafe() bool {
	return true
}

// Preallocate has no portable equivalent to fallocate; grow the file with
// Truncate instead, which at least reserves the logical extent.
func (f *osFile) Preallocate(offset, length int64) error {
	return errors.WithStack(f.File.Truncate(offset + length))
}

// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build linux

package vfs

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

func createOSFile(name string, useDirectIO bool) (*osFile, error) {
	flags := unix.O_RDWR | unix.O_CREAT | unix.O_TRUNC | unix.O_CLOEXEC
	if useDirectIO {
		flags |= unix.O_DIRECT
	}
	fd, err := unix.Open(name, flags, 0666)
	if err != nil {
		if useDirectIO && errors.Is(err, unix.EINVAL) {
			// Some filesystems (tmpfs, overlayfs) reject O_DIRECT outright;
			// fall back to buffered I/O rather than fail the whole writer.
			fd, err = unix.Open(name, flags&^unix.O_DIRECT, 0666)
			useDirectIO = false
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return &osFile{File: os.NewFile(uintptr(fd), name), directIO: useDirectIO}, nil
}

func (f *osFile) Sync() error {
	return errors.WithStack(unix.Fdatasync(int(f.Fd())))
}

func (f *osFile) Fsync() error {
	return errors.WithStack(f.File.Sync())
}

func (f *osFile) RangeSync(offset, length int64) error {
	const (
		waitBefore = 0x1
		write      = 0x2
	)
	err := unix.SyncFileRange(int(f.Fd()), offset, length, write|waitBefore)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EOPNOTSUPP) {
		// Not every filesystem supports sync_file_range (notably tmpfs);
		// degrade to a full data sync rather than lose the durability hint.
		return f.Sync()
	}
	return errors.WithStack(err)
}

func (f *osFile) IsSyncThreadSafe() bool {
	return true
}

// Preallocate extends the file by length bytes starting at offset, using
// fallocate where available and falling back to ftruncate otherwise.
func (f *osFile) Preallocate(offset, length int64) error {
	err := unix.Fallocate(int(f.Fd()), 0, offset, length)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EINTR) || errors.Is(err, unix.ENOSYS) {
		return errors.WithStack(unix.Ftruncate(int(f.Fd()), offset+length))
	}
	return errors.WithStack(err)
}

// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// MemFS is a memory-backed FS with no directories, locks or crash-cloning,
// just named byte buffers with synced/unsynced offsets so tests can assert
// on what Sync/RangeSync actually flushed.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memNode
}

var _ FS = (*MemFS)(nil)

// MemFile exposes test-only introspection into a MemFS-backed File's
// contents, beyond the plain File interface: the full (synced or not) byte
// stream, and the subset of it that has actually been synced.
type MemFile interface {
	File
	Data() []byte
	SyncedData() []byte
}

var _ MemFile = (*memFile)(nil)

// NewMem returns a new, empty memory-backed FS.
func NewMem() *MemFS {
	return &MemFS{files: make(map[string]*memNode)}
}

func (m *MemFS) Create(name string, useDirectIO bool) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := &memNode{}
	m.files[name] = n
	return &memFile{n: n}, nil
}

func (m *MemFS) Open(name string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.files[name]
	if !ok {
		return nil, errors.Newf("vfs: file %q not found", name)
	}
	return &memFile{n: n}, nil
}

func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *MemFS) Alignment() int {
	return 4096
}

// memNode is the shared state backing every open handle to the same name.
type memNode struct {
	mu struct {
		sync.Mutex
		data       []byte
		syncedSize int64
		closed     bool
	}
}

type memFile struct {
	n *memNode
}

var _ File = (*memFile)(nil)

func (f *memFile) PrepareWrite(offset int64, size int) {}

func (f *memFile) Append(p []byte, _ VerificationInfo) (int, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	f.n.mu.data = append(f.n.mu.data, p...)
	return len(p), nil
}

func (f *memFile) PositionedAppend(p []byte, offset int64, _ VerificationInfo) (int, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	end := offset + int64(len(p))
	if int64(len(f.n.mu.data)) < end {
		grown := make([]byte, end)
		copy(grown, f.n.mu.data)
		f.n.mu.data = grown
	}
	copy(f.n.mu.data[offset:end], p)
	return len(p), nil
}

func (f *memFile) Flush() error {
	return nil
}

func (f *memFile) Sync() error {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	f.n.mu.syncedSize = int64(len(f.n.mu.data))
	return nil
}

func (f *memFile) Fsync() error {
	return f.Sync()
}

func (f *memFile) RangeSync(offset, length int64) error {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	if s := offset + length; s > f.n.mu.syncedSize {
		f.n.mu.syncedSize = s
	}
	return nil
}

func (f *memFile) Truncate(size int64) error {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	if int64(len(f.n.mu.data)) > size {
		f.n.mu.data = f.n.mu.data[:size]
	}
	return nil
}

func (f *memFile) Close() error {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	f.n.mu.closed = true
	return nil
}

func (f *memFile) Size() (int64, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	return int64(len(f.n.mu.data)), nil
}

func (f *memFile) IsSyncThreadSafe() bool {
	return true
}

// SyncedData returns the byte range of this file that has actually been
// synced, for use in tests asserting on durability boundaries.
func (f *memFile) SyncedData() []byte {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	n := f.n.mu.syncedSize
	if n > int64(len(f.n.mu.data)) {
		n = int64(len(f.n.mu.data))
	}
	out := make([]byte, n)
	copy(out, f.n.mu.data[:n])
	return out
}

// Data returns a copy of all bytes written to this file so far, synced or
// not.
func (f *memFile) Data() []byte {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	out := make([]byte, len(f.n.mu.data))
	copy(out, f.n.mu.data)
	return out
}

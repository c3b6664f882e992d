// Copyright 2012 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemFSAppendAndSize(t *testing.T) {
	fs := NewMem()
	f, err := fs.Create("log-000001", false)
	require.NoError(t, err)

	n, err := f.Append([]byte("hello"), VerificationInfo{})
	require.NoError(t, err)
	require.Equal(t, 5, n)

	n, err = f.Append([]byte(" world"), VerificationInfo{})
	require.NoError(t, err)
	require.Equal(t, 6, n)

	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(11), size)
	require.NoError(t, f.Close())
}

func TestMemFSPositionedAppendGrowsFile(t *testing.T) {
	fs := NewMem()
	f, err := fs.Create("log-000002", true)
	require.NoError(t, err)
	mf := f.(*memFile)

	_, err = f.PositionedAppend([]byte("abcd"), 4096, VerificationInfo{})
	require.NoError(t, err)

	require.Equal(t, 4100, len(mf.Data()))
	require.Equal(t, []byte("abcd"), mf.Data()[4096:4100])
}

func TestMemFSSyncRatchetsSyncedSize(t *testing.T) {
	fs := NewMem()
	f, err := fs.Create("log-000003", false)
	require.NoError(t, err)
	mf := f.(*memFile)

	_, err = f.Append([]byte("unsynced"), VerificationInfo{})
	require.NoError(t, err)
	require.Empty(t, mf.SyncedData())

	require.NoError(t, f.Sync())
	require.Equal(t, []byte("unsynced"), mf.SyncedData())
}

func TestMemFSRangeSyncRatchetsPartialRange(t *testing.T) {
	fs := NewMem()
	f, err := fs.Create("log-000004", false)
	require.NoError(t, err)
	mf := f.(*memFile)

	_, err = f.Append(make([]byte, 100), VerificationInfo{})
	require.NoError(t, err)

	require.NoError(t, f.RangeSync(0, 40))
	require.Len(t, mf.SyncedData(), 40)
}

func TestMemFSOpenMissingFile(t *testing.T) {
	fs := NewMem()
	_, err := fs.Open("does-not-exist")
	require.Error(t, err)
}

func TestMemFSRemove(t *testing.T) {
	fs := NewMem()
	_, err := fs.Create("log-000005", false)
	require.NoError(t, err)
	require.NoError(t, fs.Remove("log-000005"))
	_, err = fs.Open("log-000005")
	require.Error(t, err)
}

// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndCapacity(t *testing.T) {
	a := New(8, 1)
	n := a.Append([]byte("hello world"))
	require.Equal(t, 8, n)
	require.Equal(t, 8, a.CurrentSize())
	require.Equal(t, []byte("hello wo"), a.Bytes())
}

func TestAllocateNewBufferPreservesContents(t *testing.T) {
	a := New(4, 1)
	a.Append([]byte("abcd"))
	a.AllocateNewBuffer(16, true)
	require.Equal(t, 16, a.Capacity())
	require.Equal(t, []byte("abcd"), a.Bytes())
}

func TestAllocateNewBufferDiscardsContents(t *testing.T) {
	a := New(4, 1)
	a.Append([]byte("abcd"))
	a.AllocateNewBuffer(16, false)
	require.Equal(t, 0, a.CurrentSize())
}

func TestPadToAlignment(t *testing.T) {
	a := New(4096, 512)
	a.Append(make([]byte, 5000%512))
	a.Size(100)
	a.PadToAlignmentWith(0)
	require.Equal(t, 0, a.CurrentSize()%a.Alignment())
}

func TestRefitTail(t *testing.T) {
	a := New(4096, 512)
	payload := make([]byte, 5000)
	for i := range payload {
		payload[i] = byte(i)
	}
	a.AllocateNewBuffer(8192, false)
	a.Append(payload)
	fileAdvance := a.TruncateToAlignment(a.CurrentSize())
	leftover := a.CurrentSize() - fileAdvance
	tail := append([]byte{}, a.Bytes()[fileAdvance:fileAdvance+leftover]...)
	a.RefitTail(fileAdvance, leftover)
	require.Equal(t, leftover, a.CurrentSize())
	require.Equal(t, tail, a.Bytes())
}

func TestAlignmentOfBackingRegion(t *testing.T) {
	a := New(4096, 4096)
	require.Equal(t, uintptr(0), uintptrOf(a.data())%uintptr(a.Alignment()))
}

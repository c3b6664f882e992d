// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package buffer implements the aligned staging buffer that sits underneath
// the record File Writer: an owned, optionally page-aligned byte region that
// can grow, be padded, and have its tail "refit" back to offset zero once a
// direct I/O write has consumed a whole number of pages.
package buffer

// Aligned is an owned byte region, optionally aligned to a page boundary so
// that it can be handed directly to a positioned, direct I/O write. Its
// invariants:
//
//   - current_size <= capacity
//   - if alignment > 1, the region returned by Bytes is aligned
//   - growth preserves the existing current_size bytes
//   - RefitTail copies the live tail down to offset 0
//
// Aligned is not safe for concurrent use; the File Writer above it is
// externally synchronized.
type Aligned struct {
	raw       []byte
	start     int
	capacity  int
	size      int
	alignment int
}

// New allocates a new Aligned buffer with the given initial capacity and
// alignment. alignment must be a power of two, or 1 to disable alignment.
func New(initialCapacity, alignment int) *Aligned {
	if alignment < 1 {
		alignment = 1
	}
	a := &Aligned{alignment: alignment}
	a.allocate(initialCapacity)
	return a
}

func (a *Aligned) allocate(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	if a.alignment <= 1 {
		a.raw = make([]byte, capacity)
		a.start = 0
		a.capacity = capacity
		return
	}
	raw := make([]byte, capacity+a.alignment-1)
	start := 0
	if rem := int(uintptrOf(raw)) % a.alignment; rem != 0 {
		start = a.alignment - rem
	}
	a.raw = raw
	a.start = start
	a.capacity = capacity
}

// AllocateNewBuffer reallocates the buffer to newCapacity, which must be at
// least the current size. When copyExisting is true, the live
// [0, CurrentSize()) region is preserved; otherwise the new buffer starts
// empty. The buffer's alignment is honored by the reallocation.
func (a *Aligned) AllocateNewBuffer(newCapacity int, copyExisting bool) {
	if newCapacity < a.size {
		panic("buffer: AllocateNewBuffer capacity smaller than current size")
	}
	old := a.data()
	size := a.size
	a.allocate(newCapacity)
	if copyExisting && size > 0 {
		copy(a.data(), old[:size])
		a.size = size
	} else {
		a.size = 0
	}
}

func (a *Aligned) data() []byte {
	return a.raw[a.start : a.start+a.capacity]
}

// Capacity returns the total number of bytes the buffer can currently hold.
func (a *Aligned) Capacity() int { return a.capacity }

// CurrentSize returns the number of live bytes currently staged.
func (a *Aligned) CurrentSize() int { return a.size }

// Alignment returns the buffer's configured alignment (1 if unaligned).
func (a *Aligned) Alignment() int { return a.alignment }

// Bytes returns the live [0, CurrentSize()) region of the buffer. The
// returned slice is invalidated by any subsequent mutating call.
func (a *Aligned) Bytes() []byte {
	return a.data()[:a.size]
}

// Size sets the current size directly. n must not exceed Capacity().
func (a *Aligned) Size(n int) {
	if n > a.capacity {
		panic("buffer: Size exceeds capacity")
	}
	a.size = n
}

// Append copies up to min(len(src), Capacity()-CurrentSize()) bytes from src
// into the buffer, advancing CurrentSize, and returns the number of bytes
// actually copied.
func (a *Aligned) Append(src []byte) int {
	room := a.capacity - a.size
	n := len(src)
	if n > room {
		n = room
	}
	if n <= 0 {
		return 0
	}
	copy(a.data()[a.size:], src[:n])
	a.size += n
	return n
}

// PadWith fills up to min(n, Capacity()-CurrentSize()) bytes with b,
// advancing CurrentSize, and returns the number of bytes actually written.
func (a *Aligned) PadWith(n int, b byte) int {
	room := a.capacity - a.size
	if n > room {
		n = room
	}
	if n <= 0 {
		return 0
	}
	dst := a.data()[a.size : a.size+n]
	for i := range dst {
		dst[i] = b
	}
	a.size += n
	return n
}

// PadToAlignmentWith rounds CurrentSize up to the next multiple of
// Alignment(), filling the new bytes with b. It panics if the buffer lacks
// the capacity to do so; the File Writer is responsible for ensuring the
// buffer was sized to always accommodate one alignment's worth of padding,
// which is an invariant, not a runtime condition.
func (a *Aligned) PadToAlignmentWith(b byte) {
	if a.alignment <= 1 {
		return
	}
	rem := a.size % a.alignment
	if rem == 0 {
		return
	}
	need := a.alignment - rem
	if n := a.PadWith(need, b); n != need {
		panic("buffer: insufficient capacity to pad to alignment")
	}
}

// RefitTail copies the tail region [fileAdvance, fileAdvance+leftover) down
// to offset 0 and sets CurrentSize to leftover. It is used after a direct
// I/O write has consumed fileAdvance whole-page bytes, leaving leftover
// bytes that must be rewritten on the next flush.
func (a *Aligned) RefitTail(fileAdvance, leftover int) {
	if fileAdvance+leftover > a.size {
		panic("buffer: RefitTail region exceeds current size")
	}
	if leftover > 0 {
		copy(a.data()[:leftover], a.data()[fileAdvance:fileAdvance+leftover])
	}
	a.size = leftover
}

// TruncateToAlignment rounds n down to the nearest multiple of the buffer's
// alignment.
func (a *Aligned) TruncateToAlignment(n int) int {
	if a.alignment <= 1 {
		return n
	}
	return n - (n % a.alignment)
}

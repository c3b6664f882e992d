// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package record implements the durable write path for an LSM-tree's
// write-ahead log: a buffered, rate-limited, checksummed File Writer and, on
// top of it, a block-structured Log Writer that fragments variable-length
// records into fixed-size physical blocks.
//
// On-disk format. A log file is a sequence of blockSize-byte blocks. Each
// block holds one or more physical records and ends with a trailer of fewer
// than headerSize zero bytes when there isn't room for another header.
// Legacy physical record:
//
//	+----------+---------+--------+-----------------+
//	| CRC (4B) | len(2B) | type(1B)| payload (len B) |
//	+----------+---------+--------+-----------------+
//
// Recyclable physical record additionally carries the low 32 bits of the log
// generation number between the type byte and the payload:
//
//	+----------+---------+--------+-------------+-----------------+
//	| CRC (4B) | len(2B) | type(1B)| logNum (4B) | payload (len B) |
//	+----------+---------+--------+-------------+-----------------+
//
// The CRC covers the type byte, the log number bytes (recyclable only), and
// the payload, and is stored masked (internal/crc32c.Mask) so that a CRC of
// record-shaped bytes appearing in the payload itself can't be confused with
// the record's own CRC. A logical record larger than one fragment is split
// across FIRST, zero or more MIDDLE, and a final LAST physical record; a
// record that fits in a single fragment uses FULL instead.
package record

import "github.com/cockroachdb/errors"

// Block and header size constants, matching the on-disk format the reader
// expects.
const (
	blockSize = 32768

	legacyHeaderSize    = 7
	recyclableHeaderSize = 11

	// maxHeaderSize bounds the zero trailer literal written to close out a
	// block; both header sizes above must never exceed it.
	maxHeaderSize = 11
)

// recordType identifies a physical record's place within its logical record,
// and whether the log uses the recyclable header variant.
type recordType byte

const (
	fullType   recordType = 1
	firstType  recordType = 2
	middleType recordType = 3
	lastType   recordType = 4

	recyclableFullType   recordType = 5
	recyclableFirstType  recordType = 6
	recyclableMiddleType recordType = 7
	recyclableLastType   recordType = 8
)

func init() {
	// The trailer literal written by the Log Writer assumes both header
	// sizes fit within it (spec §9, "Trailer literal constraint").
	if legacyHeaderSize > maxHeaderSize || recyclableHeaderSize > maxHeaderSize {
		panic("record: header size exceeds maxHeaderSize")
	}
}

// Sentinel errors returned by this package.
var (
	// ErrClosed is returned by any operation performed on a FileWriter or
	// LogWriter after Close has released the underlying sink.
	ErrClosed = errors.New("record: writer is closed")

	// ErrBufferCorruption is returned when the aligned buffer refuses an
	// append that the writer's own invariants guaranteed would fit. This
	// indicates an internal invariant breach, not a transient condition.
	ErrBufferCorruption = errors.New("record: internal buffer invariant violated")

	// ErrRecordTooLarge is returned by emitPhysicalRecord if a fragment
	// would exceed the 16-bit length field.
	ErrRecordTooLarge = errors.New("record: physical record fragment exceeds 65535 bytes")
)

// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package crc32c implements the CRC32C (Castagnoli) checksum used by the
// record format: a bare Value/Extend/Combine/Mask primitive with no
// dependency on the surrounding write path.
package crc32c

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// Value returns the CRC32C of b.
func Value(b []byte) uint32 {
	return crc32.Checksum(b, table)
}

// Extend returns the result of adding the bytes in b to the CRC32C seed.
func Extend(seed uint32, b []byte) uint32 {
	return crc32.Update(seed, table, b)
}

// maskDelta is the additive constant used by Mask/Unmask, bit-exact with the
// reader's unmask.
const maskDelta = 0xa282ead8

// Mask returns a masked representation of crc. Masking is done before
// storing a CRC in a header so that it is not confused with a CRC of the
// primary data that happens to be embedded in the primary data itself.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask is the inverse of Mask.
func Unmask(maskedCRC uint32) uint32 {
	rot := maskedCRC - maskDelta
	return (rot >> 17) | (rot << 15)
}

// gf2Dim is the number of bits (and thus the dimension of the GF(2) matrices
// used by Combine).
const gf2Dim = 32

func gf2MatrixTimes(mat *[gf2Dim]uint32, vec uint32) uint32 {
	var sum uint32
	for i := 0; vec != 0; i++ {
		if vec&1 != 0 {
			sum ^= mat[i]
		}
		vec >>= 1
	}
	return sum
}

func gf2MatrixSquare(square, mat *[gf2Dim]uint32) {
	for n := 0; n < gf2Dim; n++ {
		square[n] = gf2MatrixTimes(mat, mat[n])
	}
}

// castagnoliPolyReversed is the bit-reversed Castagnoli polynomial, matching
// the reflected/table-driven convention used by hash/crc32 and by
// RocksDB's util/crc32c.cc Crc32cCombine.
const castagnoliPolyReversed = 0x82f63b78

// Combine returns the CRC32C of the concatenation of two byte sequences,
// given crc1 is the CRC32C of the first sequence, crc2 is the CRC32C of the
// second sequence, and len2 is the length in bytes of the second sequence.
// Neither sequence's bytes need to be available; this is what allows the
// File Writer to fold a caller-supplied handoff checksum into a running
// buffer checksum without re-reading the caller's bytes.
func Combine(crc1, crc2 uint32, len2 int64) uint32 {
	if len2 == 0 {
		return crc1
	}

	var even, odd [gf2Dim]uint32

	// Operator for one zero bit.
	odd[0] = castagnoliPolyReversed
	row := uint32(1)
	for n := 1; n < gf2Dim; n++ {
		odd[n] = row
		row <<= 1
	}

	// Operator for two zero bits.
	gf2MatrixSquare(&even, &odd)
	// Operator for four zero bits.
	gf2MatrixSquare(&odd, &even)

	crc := crc1
	for {
		gf2MatrixSquare(&even, &odd)
		if len2&1 != 0 {
			crc = gf2MatrixTimes(&even, crc)
		}
		len2 >>= 1
		if len2 == 0 {
			break
		}

		gf2MatrixSquare(&odd, &even)
		if len2&1 != 0 {
			crc = gf2MatrixTimes(&odd, crc)
		}
		len2 >>= 1
		if len2 == 0 {
			break
		}
	}

	return crc ^ crc2
}

// HandoffSize is the width in bytes of an encoded handoff checksum.
const HandoffSize = 4

// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package crc32c

import "encoding/binary"

// PutHandoff computes the CRC32C of data and encodes it little-endian into
// buf, which must be at least HandoffSize bytes. It returns the checksum
// value alongside the encoded bytes so callers that also need the raw value
// (to fold into a running buffer checksum, say) don't have to decode it
// back out.
func PutHandoff(buf []byte, data []byte) uint32 {
	v := Extend(0, data)
	binary.LittleEndian.PutUint32(buf, v)
	return v
}

// EncodeHandoff encodes an already-computed CRC32C value little-endian into
// buf, which must be at least HandoffSize bytes.
func EncodeHandoff(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// DecodeHandoff decodes a little-endian CRC32C value from buf.
func DecodeHandoff(buf []byte) uint32 {
	return binary.LittleEndian.Uint32(buf)
}

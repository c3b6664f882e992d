// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"encoding/binary"

	"github.com/riftdb/wal/internal/crc32c"
)

// physicalRecord is a single header+payload unit as read back off disk,
// used only by tests to verify the on-disk format; a production log reader
// is not part of this package.
type physicalRecord struct {
	typ        recordType
	logNumLow  uint32
	payload    []byte
	maskedCRC  uint32
}

// parsePhysicalRecords walks data as a sequence of blockSize blocks,
// decoding every physical record it finds and skipping trailers. recyclable
// selects the 11-byte header variant.
func parsePhysicalRecords(data []byte, recyclable bool) []physicalRecord {
	headerSize := legacyHeaderSize
	if recyclable {
		headerSize = recyclableHeaderSize
	}

	var out []physicalRecord
	pos := 0
	for pos < len(data) {
		blockStart := (pos / blockSize) * blockSize
		blockEnd := blockStart + blockSize
		if blockEnd > len(data) {
			blockEnd = len(data)
		}
		if blockEnd-pos < headerSize {
			pos = blockEnd
			continue
		}

		hdr := data[pos : pos+headerSize]
		length := int(hdr[4]) | int(hdr[5])<<8
		rec := physicalRecord{
			typ:       recordType(hdr[6]),
			maskedCRC: binary.LittleEndian.Uint32(hdr[0:4]),
		}
		payloadStart := pos + headerSize
		if recyclable {
			rec.logNumLow = binary.LittleEndian.Uint32(hdr[7:11])
		}
		rec.payload = data[payloadStart : payloadStart+length]
		out = append(out, rec)
		pos = payloadStart + length
	}
	return out
}

// verifyCRC recomputes a physical record's expected masked CRC from its type,
// optional log-number bytes, and payload: unmask(R.crc) must equal
// crc32c(type || log_number_bytes || payload).
func (r physicalRecord) verifyCRC() bool {
	crc := crc32c.Value([]byte{byte(r.typ)})
	if r.typ >= recyclableFullType {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], r.logNumLow)
		crc = crc32c.Extend(crc, lenBuf[:])
	}
	crc = crc32c.Combine(crc, crc32c.Value(r.payload), int64(len(r.payload)))
	return crc32c.Unmask(r.maskedCRC) == crc
}

// reassembleLogicalRecords concatenates FULL records and FIRST (MIDDLE)* LAST
// runs back into logical records, in order.
func reassembleLogicalRecords(recs []physicalRecord) [][]byte {
	var out [][]byte
	var cur []byte
	for _, r := range recs {
		switch r.typ {
		case fullType, recyclableFullType:
			out = append(out, append([]byte(nil), r.payload...))
		case firstType, recyclableFirstType:
			cur = append([]byte(nil), r.payload...)
		case middleType, recyclableMiddleType:
			cur = append(cur, r.payload...)
		case lastType, recyclableLastType:
			cur = append(cur, r.payload...)
			out = append(out, cur)
			cur = nil
		}
	}
	return out
}

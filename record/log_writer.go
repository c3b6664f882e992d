// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/riftdb/wal/internal/crc32c"
)

// trailerLiteral is written, truncated to leftover bytes, whenever a block
// doesn't have room for another header. Its length assumes both header sizes
// fit within maxHeaderSize.
var trailerLiteral = make([]byte, maxHeaderSize-1)

// LogWriter layers the block-structured, fragmented record format on top of
// a FileWriter: it splits each logical record into one or more physical
// records so that no physical record crosses a blockSize boundary.
type LogWriter struct {
	dest            *FileWriter
	blockOffset     int
	logNumber       uint64
	recycleLogFiles bool
	manualFlush     bool
	typeCRC         [9]uint32 // indexed by recordType; recyclableLastType == 8
}

// NewLogWriter returns a LogWriter that emits records through dest. When
// recycleLogFiles is true, every physical record uses the 11-byte header
// variant embedding the low 32 bits of logNumber.
func NewLogWriter(dest *FileWriter, logNumber uint64, recycleLogFiles, manualFlush bool) *LogWriter {
	w := &LogWriter{
		dest:            dest,
		logNumber:       logNumber,
		recycleLogFiles: recycleLogFiles,
		manualFlush:     manualFlush,
	}
	for i := range w.typeCRC {
		w.typeCRC[i] = crc32c.Value([]byte{byte(i)})
	}
	return w
}

// AddRecord emits slice as one or more physical records, fragmenting it
// across as many blocks as necessary. AddRecord("") emits exactly one
// zero-length FULL (or RECYCLABLE_FULL) record. It returns the logical file
// offset just past the last physical record written, mirroring
// pebble.Writer.WriteRecord's return value.
func (w *LogWriter) AddRecord(slice []byte) (int64, error) {
	headerSize := legacyHeaderSize
	if w.recycleLogFiles {
		headerSize = recyclableHeaderSize
	}

	left := len(slice)
	begin := true

	for {
		leftover := blockSize - w.blockOffset
		if leftover < 0 {
			return 0, errors.WithStack(ErrBufferCorruption)
		}
		if leftover < headerSize {
			if leftover > 0 {
				if err := w.dest.Append(trailerLiteral[:leftover], 0); err != nil {
					return 0, err
				}
			}
			w.blockOffset = 0
		}

		avail := blockSize - w.blockOffset - headerSize
		fragmentLength := left
		if fragmentLength > avail {
			fragmentLength = avail
		}

		end := left == fragmentLength
		t := w.recordType(begin, end)

		if err := w.emitPhysicalRecord(t, slice[:fragmentLength], headerSize); err != nil {
			return 0, err
		}

		slice = slice[fragmentLength:]
		left -= fragmentLength
		begin = false

		if left <= 0 {
			break
		}
	}

	if !w.manualFlush {
		if err := w.dest.Flush(); err != nil {
			return 0, err
		}
	}

	return w.dest.GetFileSize(), nil
}

func (w *LogWriter) recordType(begin, end bool) recordType {
	switch {
	case begin && end:
		if w.recycleLogFiles {
			return recyclableFullType
		}
		return fullType
	case begin:
		if w.recycleLogFiles {
			return recyclableFirstType
		}
		return firstType
	case end:
		if w.recycleLogFiles {
			return recyclableLastType
		}
		return lastType
	default:
		if w.recycleLogFiles {
			return recyclableMiddleType
		}
		return middleType
	}
}

// emitPhysicalRecord writes one physical record: a fixed-size header
// followed by the n-byte payload. n must fit in the header's 16-bit length
// field.
func (w *LogWriter) emitPhysicalRecord(t recordType, payload []byte, headerSize int) error {
	n := len(payload)
	if n > 0xffff {
		return errors.WithStack(ErrRecordTooLarge)
	}

	var buf [recyclableHeaderSize]byte
	buf[4] = byte(n & 0xff)
	buf[5] = byte(n >> 8)
	buf[6] = byte(t)

	crc := w.typeCRC[t]
	if t >= recyclableFullType {
		binary.LittleEndian.PutUint32(buf[7:11], uint32(w.logNumber))
		crc = crc32c.Extend(crc, buf[7:11])
	}

	payloadCRC := crc32c.Value(payload)
	crc = crc32c.Combine(crc, payloadCRC, int64(n))
	crc = crc32c.Mask(crc)
	binary.LittleEndian.PutUint32(buf[0:4], crc)

	if err := w.dest.Append(buf[:headerSize], 0); err != nil {
		return err
	}
	if err := w.dest.Append(payload, payloadCRC); err != nil {
		return err
	}

	w.blockOffset += headerSize + n
	return nil
}

// Sync forces the underlying FileWriter to flush and durably persist
// everything written so far.
func (w *LogWriter) Sync(useFsync bool) error {
	return w.dest.Sync(useFsync)
}

// Size returns the logical file size (bytes written so far, including
// headers and trailers).
func (w *LogWriter) Size() int64 {
	return w.dest.GetFileSize()
}

// Close flushes and closes the underlying FileWriter.
func (w *LogWriter) Close() error {
	return w.dest.Close()
}

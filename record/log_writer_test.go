// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"strings"
	"testing"

	"github.com/riftdb/wal/internal/crc32c"
	"github.com/riftdb/wal/vfs"
	"github.com/stretchr/testify/require"
)

func newLogWriter(t *testing.T, opts Options) (*LogWriter, vfs.MemFile) {
	t.Helper()
	sink, _ := newMemSink(t, opts.UseDirectIO)
	fw := NewFileWriter("test-log", sink, opts)
	lw := NewLogWriter(fw, 0, opts.RecycleLogFiles, opts.ManualFlush)
	return lw, sink
}

func TestLogWriterTwoRecordsFitOneBlock(t *testing.T) {
	lw, sink := newLogWriter(t, Options{})

	_, err := lw.AddRecord([]byte("AB"))
	require.NoError(t, err)
	_, err = lw.AddRecord([]byte("CDE"))
	require.NoError(t, err)

	require.Equal(t, 19, lw.blockOffset)

	recs := parsePhysicalRecords(sink.Data(), false)
	require.Len(t, recs, 2)
	require.Equal(t, fullType, recs[0].typ)
	require.Equal(t, []byte("AB"), recs[0].payload)
	require.True(t, recs[0].verifyCRC())
	require.Equal(t, fullType, recs[1].typ)
	require.Equal(t, []byte("CDE"), recs[1].payload)
	require.True(t, recs[1].verifyCRC())
}

func TestLogWriterEmptyRecord(t *testing.T) {
	lw, sink := newLogWriter(t, Options{})

	_, err := lw.AddRecord(nil)
	require.NoError(t, err)
	require.Equal(t, legacyHeaderSize, lw.blockOffset)

	recs := parsePhysicalRecords(sink.Data(), false)
	require.Len(t, recs, 1)
	require.Equal(t, fullType, recs[0].typ)
	require.Empty(t, recs[0].payload)
	require.True(t, recs[0].verifyCRC())
}

func TestLogWriterFillsBlockThenStartsTrailer(t *testing.T) {
	lw, sink := newLogWriter(t, Options{
		MaxBufferSize: 1 << 20,
	})

	first := strings.Repeat("X", 32760)
	_, err := lw.AddRecord([]byte(first))
	require.NoError(t, err)
	require.Equal(t, 32767, lw.blockOffset)

	_, err = lw.AddRecord([]byte("Y"))
	require.NoError(t, err)

	recs := parsePhysicalRecords(sink.Data(), false)
	require.Len(t, recs, 2)
	require.Equal(t, 32760, len(recs[0].payload))
	require.Equal(t, []byte("Y"), recs[1].payload)
	// The second record starts a fresh block after a 1-byte trailer.
	require.Equal(t, blockSize+legacyHeaderSize+1, len(sink.Data()))
}

func TestLogWriterFragmentsAcrossBlocks(t *testing.T) {
	lw, sink := newLogWriter(t, Options{
		MaxBufferSize: 1 << 20,
	})

	payload := make([]byte, 40000)
	for i := range payload {
		payload[i] = 'Z'
	}
	_, err := lw.AddRecord(payload)
	require.NoError(t, err)

	require.Equal(t, 7+7239, lw.blockOffset)

	recs := parsePhysicalRecords(sink.Data(), false)
	require.Len(t, recs, 2)
	require.Equal(t, firstType, recs[0].typ)
	require.Equal(t, 32761, len(recs[0].payload))
	require.Equal(t, lastType, recs[1].typ)
	require.Equal(t, 7239, len(recs[1].payload))

	logical := reassembleLogicalRecords(recs)
	require.Len(t, logical, 1)
	require.Equal(t, payload, logical[0])
}

func TestLogWriterRecyclableHeaderEncodesLogNumber(t *testing.T) {
	sink, _ := newMemSink(t, false)
	fw := NewFileWriter("test-log", sink, Options{})
	lw := NewLogWriter(fw, 0x0000000100000042, true, false)

	_, err := lw.AddRecord([]byte("hi"))
	require.NoError(t, err)

	recs := parsePhysicalRecords(sink.Data(), true)
	require.Len(t, recs, 1)
	require.Equal(t, recyclableFullType, recs[0].typ)
	require.Equal(t, uint32(0x42), recs[0].logNumLow)
	require.Equal(t, []byte("hi"), recs[0].payload)
	require.True(t, recs[0].verifyCRC())
}

func TestLogWriterManualFlushSkipsAutoFlush(t *testing.T) {
	lw, sink := newLogWriter(t, Options{ManualFlush: true})

	_, err := lw.AddRecord([]byte("abc"))
	require.NoError(t, err)
	require.Empty(t, sink.Data())

	require.NoError(t, lw.dest.Flush())
	require.NotEmpty(t, sink.Data())
}

func TestLogWriterAddRecordReturnsPositionPastRecord(t *testing.T) {
	lw, _ := newLogWriter(t, Options{})

	pos, err := lw.AddRecord([]byte("AB"))
	require.NoError(t, err)
	require.Equal(t, int64(legacyHeaderSize+2), pos)
}

func TestLogWriterCloseClosesFileWriter(t *testing.T) {
	lw, sink := newLogWriter(t, Options{})
	_, err := lw.AddRecord([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, lw.Close())
	require.NotEmpty(t, sink.Data())
	require.ErrorIs(t, lw.dest.Append([]byte("x"), 0), ErrClosed)
}

func TestLogWriterMaskUnmaskRoundTrip(t *testing.T) {
	v := crc32c.Value([]byte("physical record"))
	require.Equal(t, v, crc32c.Unmask(crc32c.Mask(v)))
}

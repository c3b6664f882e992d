// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"testing"

	"github.com/riftdb/wal/internal/ratelimiter"
	"github.com/riftdb/wal/vfs"
	"github.com/stretchr/testify/require"
)

func newMemSink(t *testing.T, useDirectIO bool) (vfs.MemFile, *vfs.MemFS) {
	t.Helper()
	fs := vfs.NewMem()
	f, err := fs.Create("test-log", useDirectIO)
	require.NoError(t, err)
	return f.(vfs.MemFile), fs
}

func TestFileWriterAppendAndFlush(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{})

	require.NoError(t, w.Append([]byte("hello, "), 0))
	require.NoError(t, w.Append([]byte("world"), 0))
	require.NoError(t, w.Flush())

	require.Equal(t, int64(12), w.GetFileSize())
	require.Equal(t, []byte("hello, world"), sink.Data())
}

func TestFileWriterBufferGrowthAndBypass(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{
		InitialBufferSize: 16,
		MaxBufferSize:     64,
	})

	big := make([]byte, 200)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, w.Append(big, 0))
	require.NoError(t, w.Flush())

	require.Equal(t, int64(200), w.GetFileSize())
	require.Equal(t, big, sink.Data())
}

func TestFileWriterPad(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{})

	require.NoError(t, w.Append([]byte("abc"), 0))
	require.NoError(t, w.Pad(5))
	require.NoError(t, w.Flush())

	require.Equal(t, int64(8), w.GetFileSize())
	require.Equal(t, append([]byte("abc"), make([]byte, 5)...), sink.Data())
}

func TestFileWriterPadRejectsPageSized(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{})
	require.Error(t, w.Pad(4096))
}

func TestFileWriterSyncClearsPendingSync(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{})

	require.NoError(t, w.Append([]byte("abc"), 0))
	require.True(t, w.pendingSync)
	require.NoError(t, w.Sync(false))
	require.False(t, w.pendingSync)
	require.Equal(t, []byte("abc"), sink.SyncedData())
}

func TestFileWriterSyncWithoutFlushOnThreadSafeSink(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{})
	require.NoError(t, w.SyncWithoutFlush(false))
}

func TestFileWriterCloseIsIdempotent(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{})

	require.NoError(t, w.Append([]byte("abc"), 0))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	require.ErrorIs(t, w.Append([]byte("x"), 0), ErrClosed)
}

func TestFileWriterChecksumGeneratorFinalizedOnce(t *testing.T) {
	sink, _ := newMemSink(t, false)
	gen := NewXXHash64ChecksumGenerator()
	w := NewFileWriter("test-log", sink, Options{ChecksumGenerator: gen})

	require.NoError(t, w.Append([]byte("abc"), 0))
	require.Equal(t, "xxhash64", w.GetFileChecksumFuncName())
	require.NoError(t, w.Close())
	require.True(t, w.checksumFinalized)
	require.NotEmpty(t, w.GetFileChecksum())
}

func TestFileWriterBufferedVerification(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{
		PerformDataVerification:  true,
		BufferedDataWithChecksum: true,
	})

	require.NoError(t, w.Append([]byte("payload-one"), 0))
	require.NoError(t, w.Append([]byte("payload-two"), 0))
	require.NoError(t, w.Flush())

	require.Equal(t, []byte("payload-onepayload-two"), sink.Data())
}

func TestFileWriterDirectIORefitsTail(t *testing.T) {
	sink, _ := newMemSink(t, true)
	w := NewFileWriter("test-log", sink, Options{
		UseDirectIO:       true,
		Alignment:         4096,
		InitialBufferSize: 8192,
		MaxBufferSize:     8192,
	})

	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, w.Append(data, 0))
	require.NoError(t, w.Flush())

	// Scenario 6: file_advance=4096, leftover_tail=904.
	require.Equal(t, int64(4096), w.nextWriteOffset)
	require.Equal(t, 904, w.buf.CurrentSize())
	require.Equal(t, data[4096:5000], w.buf.Bytes())
	require.Equal(t, data[:4096], sink.Data()[:4096])
}

func TestFileWriterDirectIOWithChecksum(t *testing.T) {
	sink, _ := newMemSink(t, true)
	w := NewFileWriter("test-log", sink, Options{
		UseDirectIO:              true,
		Alignment:                4096,
		InitialBufferSize:        8192,
		MaxBufferSize:            8192,
		PerformDataVerification:  true,
		BufferedDataWithChecksum: true,
	})

	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i * 7)
	}
	require.NoError(t, w.Append(data, 0))
	require.NoError(t, w.Flush())
	require.Equal(t, data[:4096], sink.Data()[:4096])
}

func TestFileWriterRateLimiterGrantsPartial(t *testing.T) {
	sink, _ := newMemSink(t, false)
	limiter := ratelimiter.NewLimiter(1<<30, 16)
	w := NewFileWriter("test-log", sink, Options{RateLimiter: limiter})

	require.NoError(t, w.Append(make([]byte, 100), 0))
	require.NoError(t, w.Flush())
	require.Equal(t, int64(100), w.GetFileSize())
	require.Len(t, sink.Data(), 100)
}

func TestFileWriterBytesPerSyncIssuesRangeSync(t *testing.T) {
	sink, _ := newMemSink(t, false)
	w := NewFileWriter("test-log", sink, Options{BytesPerSync: 64 << 10})

	require.NoError(t, w.Append(make([]byte, 3<<20), 0))
	require.NoError(t, w.Flush())

	require.Equal(t, int64(2<<20), w.lastSyncSize)

	require.NoError(t, w.Append(make([]byte, 40<<10), 0))
	require.NoError(t, w.Flush())
	require.Equal(t, int64(2<<20), w.lastSyncSize)
}

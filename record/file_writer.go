// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/riftdb/wal/internal/buffer"
	"github.com/riftdb/wal/internal/crc32c"
	"github.com/riftdb/wal/internal/ratelimiter"
	"github.com/riftdb/wal/vfs"
)

// bytesNotSyncRange and bytesAlignWhenSync bound the range-sync bookkeeping
// Flush performs when BytesPerSync is enabled: the most recently written
// megabyte is never synced (it may still be mutated), and the sync boundary
// is rounded down to a 4KiB page so filesystems that flush neighboring pages
// don't interfere with live writes.
const (
	bytesNotSyncRange  = 1 << 20
	bytesAlignWhenSync = 4 << 10
)

// FileWriter is a buffered, rate-limited, checksummed writer over a vfs.File
// sink. It owns an Aligned buffer, stages appended bytes, and drives the
// sink through the buffered or direct-I/O write paths depending on
// configuration. FileWriter is not safe for concurrent use except for
// SyncWithoutFlush, which may be called concurrently with writes.
type FileWriter struct {
	name string
	sink vfs.File
	buf  *buffer.Aligned

	filesize        int64
	nextWriteOffset int64
	lastSyncSize    int64
	pendingSync     bool

	useDirectIO              bool
	performDataVerification  bool
	bufferedDataWithChecksum bool
	bufferedDataCRC32C       uint32

	maxBufferSize int
	bytesPerSync  int64

	rateLimiter *ratelimiter.Limiter

	checksumGenerator ChecksumGenerator
	checksumFinalized bool

	listener EventListener

	closed bool
}

// NewFileWriter constructs a FileWriter over sink, named name for
// diagnostics, per the given options; it applies EnsureDefaults to its own
// copy of opts, so callers need not.
func NewFileWriter(name string, sink vfs.File, opts Options) *FileWriter {
	opts.EnsureDefaults()

	alignment := 1
	if opts.UseDirectIO {
		alignment = opts.Alignment
	}

	return &FileWriter{
		name:                     name,
		sink:                     sink,
		buf:                      buffer.New(opts.InitialBufferSize, alignment),
		useDirectIO:              opts.UseDirectIO,
		performDataVerification:  opts.PerformDataVerification,
		bufferedDataWithChecksum: opts.BufferedDataWithChecksum,
		maxBufferSize:            opts.MaxBufferSize,
		bytesPerSync:             opts.BytesPerSync,
		rateLimiter:              opts.RateLimiter,
		checksumGenerator:        opts.ChecksumGenerator,
		listener:                 opts.EventListener,
	}
}

// Name returns the file name this writer was constructed with.
func (w *FileWriter) Name() string { return w.name }

// GetFileSize returns the number of bytes logically appended so far.
func (w *FileWriter) GetFileSize() int64 { return w.filesize }

// GetFileChecksum returns the whole-file checksum generator's current value,
// or nil if no generator is configured.
func (w *FileWriter) GetFileChecksum() []byte {
	if w.checksumGenerator == nil {
		return nil
	}
	return w.checksumGenerator.Checksum()
}

// GetFileChecksumFuncName returns the whole-file checksum algorithm's name,
// or "unknown" if no generator is configured, matching RocksDB's
// GetFileChecksumFuncName contract.
func (w *FileWriter) GetFileChecksumFuncName() string {
	if w.checksumGenerator == nil {
		return "unknown"
	}
	return w.checksumGenerator.Name()
}

// Append logically appends data to the file. handoffCRC32C, if non-zero, is
// the caller's own CRC32C of data, allowing the writer to fold it into the
// buffer's running checksum instead of recomputing it.
func (w *FileWriter) Append(data []byte, handoffCRC32C uint32) error {
	if w.closed {
		return ErrClosed
	}

	left := len(data)
	src := data
	w.pendingSync = true

	if w.checksumGenerator != nil {
		w.checksumGenerator.Update(data)
	}

	w.sink.PrepareWrite(w.filesize, left)

	// Grow the buffer to try to avoid a flush.
	if w.buf.Capacity()-w.buf.CurrentSize() < left {
		for cap := w.buf.Capacity(); cap < w.maxBufferSize; cap *= 2 {
			desired := cap * 2
			if desired > w.maxBufferSize {
				desired = w.maxBufferSize
			}
			if desired-w.buf.CurrentSize() >= left || (w.useDirectIO && desired == w.maxBufferSize) {
				w.buf.AllocateNewBuffer(desired, true)
				break
			}
		}
	}

	// Buffered mode only: flush to make room if growth wasn't enough.
	if !w.useDirectIO && w.buf.Capacity()-w.buf.CurrentSize() < left {
		if w.buf.CurrentSize() > 0 {
			if err := w.Flush(); err != nil {
				return err
			}
		}
		if w.buf.CurrentSize() != 0 {
			return errors.WithStack(ErrBufferCorruption)
		}
	}

	var err error
	switch {
	case w.performDataVerification && w.bufferedDataWithChecksum && handoffCRC32C != 0:
		// The caller's checksum covers all of data un-split; either fit it
		// whole into the buffer or bypass the buffer entirely.
		if w.useDirectIO || w.buf.Capacity()-w.buf.CurrentSize() >= left {
			if w.buf.Capacity()-w.buf.CurrentSize() >= left {
				appended := w.buf.Append(src)
				if appended != left {
					err = errors.WithStack(ErrBufferCorruption)
					break
				}
				w.bufferedDataCRC32C = crc32c.Combine(w.bufferedDataCRC32C, handoffCRC32C, int64(appended))
			} else {
				for left > 0 {
					appended := w.buf.Append(src)
					w.bufferedDataCRC32C = crc32c.Extend(w.bufferedDataCRC32C, src[:appended])
					left -= appended
					src = src[appended:]
					if left > 0 {
						if err = w.Flush(); err != nil {
							break
						}
					}
				}
			}
		} else {
			w.bufferedDataCRC32C = handoffCRC32C
			err = w.writeBufferedWithChecksum(src, left)
		}
	default:
		if w.useDirectIO || w.buf.Capacity() >= left {
			for left > 0 {
				appended := w.buf.Append(src)
				if w.performDataVerification && w.bufferedDataWithChecksum {
					w.bufferedDataCRC32C = crc32c.Extend(w.bufferedDataCRC32C, src[:appended])
				}
				left -= appended
				src = src[appended:]
				if left > 0 {
					if err = w.Flush(); err != nil {
						break
					}
				}
			}
		} else {
			if w.performDataVerification && w.bufferedDataWithChecksum {
				w.bufferedDataCRC32C = crc32c.Value(src[:left])
				err = w.writeBufferedWithChecksum(src, left)
			} else {
				err = w.writeBuffered(src, left)
			}
		}
	}

	if err != nil {
		return err
	}
	w.filesize += int64(len(data))
	return nil
}

// Pad appends n zero bytes. n must be smaller than the default page size
// (4096); Pad always stages through the buffer, flushing between iterations
// if necessary.
func (w *FileWriter) Pad(n int) error {
	if w.closed {
		return ErrClosed
	}
	if n >= 4096 {
		return errors.Newf("record: Pad(%d) must be smaller than the default page size", n)
	}

	left := n
	padStart := w.buf.CurrentSize()
	for left > 0 {
		room := w.buf.Capacity() - w.buf.CurrentSize()
		appendBytes := left
		if appendBytes > room {
			appendBytes = room
		}
		w.buf.PadWith(appendBytes, 0)
		left -= appendBytes
		if left > 0 {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}

	w.pendingSync = true
	w.filesize += int64(n)
	if w.performDataVerification {
		w.bufferedDataCRC32C = crc32c.Extend(w.bufferedDataCRC32C, w.buf.Bytes()[padStart:padStart+n])
	}
	return nil
}

// Flush drains the buffer to the sink and notifies it, then, in buffered
// mode with BytesPerSync configured, issues a RangeSync once enough stable
// bytes have accumulated.
func (w *FileWriter) Flush() error {
	if w.closed {
		return ErrClosed
	}

	start := time.Now()

	var err error
	if w.buf.CurrentSize() > 0 {
		if w.useDirectIO {
			if w.pendingSync {
				if w.performDataVerification && w.bufferedDataWithChecksum {
					err = w.writeDirectWithChecksum()
				} else {
					err = w.writeDirect()
				}
			}
		} else if w.performDataVerification && w.bufferedDataWithChecksum {
			err = w.writeBufferedWithChecksum(w.buf.Bytes(), w.buf.CurrentSize())
		} else {
			err = w.writeBuffered(w.buf.Bytes(), w.buf.CurrentSize())
		}
		if err != nil {
			w.listener.FlushEnd(FlushInfo{FileSize: w.filesize, Duration: time.Since(start), Err: err})
			return err
		}
	}

	err = w.sink.Flush()
	w.listener.FlushEnd(FlushInfo{FileSize: w.filesize, Duration: time.Since(start), Err: err})
	if err != nil {
		return errors.WithStack(err)
	}

	if !w.useDirectIO && w.bytesPerSync > 0 && w.filesize > bytesNotSyncRange {
		offsetSyncTo := w.filesize - bytesNotSyncRange
		offsetSyncTo -= offsetSyncTo % bytesAlignWhenSync
		if offsetSyncTo < w.lastSyncSize {
			return errors.WithStack(ErrBufferCorruption)
		}
		if offsetSyncTo > 0 && offsetSyncTo-w.lastSyncSize >= w.bytesPerSync {
			rsStart := time.Now()
			rsErr := w.sink.RangeSync(w.lastSyncSize, offsetSyncTo-w.lastSyncSize)
			w.listener.RangeSyncEnd(RangeSyncInfo{Offset: w.lastSyncSize, Length: offsetSyncTo - w.lastSyncSize, Duration: time.Since(rsStart), Err: rsErr})
			if rsErr != nil {
				return errors.WithStack(rsErr)
			}
			w.lastSyncSize = offsetSyncTo
		}
	}

	return nil
}

// Sync flushes the buffer, then, in buffered mode, durably persists
// previously written data via sink.Fsync (useFsync) or sink.Sync.
func (w *FileWriter) Sync(useFsync bool) error {
	if err := w.Flush(); err != nil {
		return err
	}
	if !w.useDirectIO && w.pendingSync {
		if err := w.syncInternal(useFsync); err != nil {
			return err
		}
	}
	w.pendingSync = false
	return nil
}

// SyncWithoutFlush issues a sync without touching the buffer. It is only
// legal when the sink reports thread-safe sync, and may run concurrently
// with an in-progress Append, but not with another Sync/Flush/Close.
func (w *FileWriter) SyncWithoutFlush(useFsync bool) error {
	if w.closed {
		return ErrClosed
	}
	if !w.sink.IsSyncThreadSafe() {
		return vfs.ErrNotSyncThreadSafe
	}
	return w.syncInternal(useFsync)
}

func (w *FileWriter) syncInternal(useFsync bool) error {
	start := time.Now()
	var err error
	if useFsync {
		err = w.sink.Fsync()
	} else {
		err = w.sink.Sync()
	}
	w.listener.SyncEnd(SyncInfo{UseFsync: useFsync, Duration: time.Since(start), Err: err})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// RangeSync hints that [offset, offset+length) should be written back,
// exposed directly for callers that want to manage their own sync
// bookkeeping instead of relying on BytesPerSync.
func (w *FileWriter) RangeSync(offset, length int64) error {
	if w.closed {
		return ErrClosed
	}
	start := time.Now()
	err := w.sink.RangeSync(offset, length)
	w.listener.RangeSyncEnd(RangeSyncInfo{Offset: offset, Length: length, Duration: time.Since(start), Err: err})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Close is idempotent: flushes the buffer, in direct I/O mode truncates the
// file to the exact logical size and fsyncs, closes the sink, and, when
// every sub-step succeeded, finalizes the whole-file checksum generator
// exactly once. Close always attempts every sub-step and returns the first
// (earliest-in-sequence) error.
func (w *FileWriter) Close() error {
	if w.closed {
		return nil
	}

	firstErr := w.Flush()

	if w.useDirectIO {
		truncErr := w.sink.Truncate(w.filesize)
		w.listener.TruncateEnd(truncErr)
		if truncErr != nil && firstErr == nil {
			firstErr = errors.WithStack(truncErr)
		}
		fsyncErr := w.sink.Fsync()
		w.listener.SyncEnd(SyncInfo{UseFsync: true, Err: fsyncErr})
		if fsyncErr != nil && firstErr == nil {
			firstErr = errors.WithStack(fsyncErr)
		}
	}

	closeErr := w.sink.Close()
	if firstErr == nil {
		firstErr = errors.WithStack(closeErr)
	}
	w.closed = true
	w.listener.CloseEnd(CloseInfo{FileSize: w.filesize, Err: firstErr})

	if firstErr == nil && w.checksumGenerator != nil && !w.checksumFinalized {
		w.checksumGenerator.Finalize()
		w.checksumFinalized = true
	}

	return firstErr
}

// writeBuffered drives bytes through the rate limiter to the sink in
// buffered mode, one rate-limiter grant at a time. On success, resets the
// writer's own buffer; a bypass caller's src is unaffected by that reset,
// even when a short write leaves bytes unflushed.
func (w *FileWriter) writeBuffered(src []byte, size int) error {
	left := size
	off := 0
	for left > 0 {
		allowed := int64(left)
		if w.rateLimiter != nil {
			allowed = w.rateLimiter.RequestToken(int64(left), 0)
		}
		chunk := src[off : off+int(allowed)]

		var v vfs.VerificationInfo
		if w.performDataVerification {
			buf := make([]byte, crc32c.HandoffSize)
			crc32c.PutHandoff(buf, chunk)
			v.Checksum = buf
		}

		writeStart := time.Now()
		n, err := w.sink.Append(chunk, v)
		w.listener.WriteEnd(WriteInfo{Offset: w.filesize + int64(off), Size: int64(n), Duration: time.Since(writeStart), Err: err})
		if err != nil {
			return errors.WithStack(err)
		}

		off += int(allowed)
		left -= int(allowed)
	}

	w.buf.Size(0)
	w.bufferedDataCRC32C = 0
	return nil
}

// writeBufferedWithChecksum emits the entire [src, src+size) region in a
// single sink append carrying bufferedDataCRC32C as the handoff checksum,
// requesting the whole size from the rate limiter up front; this sacrifices
// smoothing to keep the sink write contiguous.
func (w *FileWriter) writeBufferedWithChecksum(src []byte, size int) error {
	if w.rateLimiter != nil {
		remaining := int64(size)
		for remaining > 0 {
			remaining -= w.rateLimiter.RequestToken(remaining, w.buf.Alignment())
		}
	}

	checksumBuf := make([]byte, crc32c.HandoffSize)
	crc32c.EncodeHandoff(checksumBuf, w.bufferedDataCRC32C)

	writeStart := time.Now()
	n, err := w.sink.Append(src[:size], vfs.VerificationInfo{Checksum: checksumBuf})
	w.listener.WriteEnd(WriteInfo{Offset: w.filesize, Size: int64(n), Duration: time.Since(writeStart), Err: err})
	if err != nil {
		return errors.WithStack(err)
	}

	w.buf.Size(0)
	w.bufferedDataCRC32C = 0
	return nil
}

// writeDirect pads the buffer to alignment and issues one or more
// rate-limited positioned appends at nextWriteOffset, then refits the
// unwritten tail back to the start of the buffer.
func (w *FileWriter) writeDirect() error {
	alignment := w.buf.Alignment()
	fileAdvance := w.buf.TruncateToAlignment(w.buf.CurrentSize())
	leftoverTail := w.buf.CurrentSize() - fileAdvance

	w.buf.PadToAlignmentWith(0)

	writeOffset := w.nextWriteOffset
	left := w.buf.CurrentSize()
	off := 0
	for left > 0 {
		size := int64(left)
		if w.rateLimiter != nil {
			size = w.rateLimiter.RequestToken(int64(left), alignment)
		}
		chunk := w.buf.Bytes()[off : off+int(size)]

		var v vfs.VerificationInfo
		if w.performDataVerification {
			buf := make([]byte, crc32c.HandoffSize)
			crc32c.PutHandoff(buf, chunk)
			v.Checksum = buf
		}

		writeStart := time.Now()
		n, err := w.sink.PositionedAppend(chunk, writeOffset, v)
		w.listener.WriteEnd(WriteInfo{Offset: writeOffset, Size: int64(n), Duration: time.Since(writeStart), Err: err})
		if err != nil {
			w.buf.Size(fileAdvance + leftoverTail)
			return errors.WithStack(err)
		}

		off += int(size)
		left -= int(size)
		writeOffset += size
	}

	w.buf.RefitTail(fileAdvance, leftoverTail)
	w.nextWriteOffset += int64(fileAdvance)
	return nil
}

// writeDirectWithChecksum is writeDirect, but folds the padding region's CRC
// into bufferedDataCRC32C before emitting the whole padded buffer in a
// single positioned append, and recomputes bufferedDataCRC32C from scratch
// after either outcome since a shortened buffer invalidates the running
// value.
func (w *FileWriter) writeDirectWithChecksum() error {
	alignment := w.buf.Alignment()
	fileAdvance := w.buf.TruncateToAlignment(w.buf.CurrentSize())
	leftoverTail := w.buf.CurrentSize() - fileAdvance

	lastCurSize := w.buf.CurrentSize()
	w.buf.PadToAlignmentWith(0)
	paddedRegion := w.buf.Bytes()[lastCurSize:]
	paddedChecksum := crc32c.Value(paddedRegion)
	w.bufferedDataCRC32C = crc32c.Combine(w.bufferedDataCRC32C, paddedChecksum, int64(len(paddedRegion)))

	writeOffset := w.nextWriteOffset
	left := w.buf.CurrentSize()

	if w.rateLimiter != nil {
		remaining := int64(left)
		for remaining > 0 {
			remaining -= w.rateLimiter.RequestToken(remaining, alignment)
		}
	}

	checksumBuf := make([]byte, crc32c.HandoffSize)
	crc32c.EncodeHandoff(checksumBuf, w.bufferedDataCRC32C)

	writeStart := time.Now()
	n, err := w.sink.PositionedAppend(w.buf.Bytes()[:left], writeOffset, vfs.VerificationInfo{Checksum: checksumBuf})
	w.listener.WriteEnd(WriteInfo{Offset: writeOffset, Size: int64(n), Duration: time.Since(writeStart), Err: err})
	if err != nil {
		w.buf.Size(fileAdvance + leftoverTail)
		w.bufferedDataCRC32C = crc32c.Value(w.buf.Bytes())
		return errors.WithStack(err)
	}

	w.buf.RefitTail(fileAdvance, leftoverTail)
	w.bufferedDataCRC32C = crc32c.Value(w.buf.Bytes())
	w.nextWriteOffset += int64(fileAdvance)
	return nil
}

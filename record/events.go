// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import (
	"fmt"
	"log"
	"os"
	"time"
)

// WriteInfo is passed to EventListener.WriteEnd after each sink write
// (Append or PositionedAppend) the FileWriter issues.
type WriteInfo struct {
	// Offset is the logical file offset the write started at.
	Offset int64
	// Size is the number of bytes appended.
	Size int64
	// Duration is how long the underlying sink call took.
	Duration time.Duration
	// Err is non-nil if the write failed.
	Err error
}

// FlushInfo is passed to EventListener.FlushEnd after a FileWriter.Flush.
type FlushInfo struct {
	// FileSize is the writer's logical file size after the flush attempt.
	FileSize int64
	Duration time.Duration
	Err      error
}

// SyncInfo is passed to EventListener.SyncEnd after each sink Sync or Fsync
// the FileWriter issues.
type SyncInfo struct {
	UseFsync bool
	Duration time.Duration
	Err      error
}

// RangeSyncInfo is passed to EventListener.RangeSyncEnd after a range sync is
// issued, either by Flush or by FileWriter.RangeSync.
type RangeSyncInfo struct {
	Offset   int64
	Length   int64
	Duration time.Duration
	Err      error
}

// CloseInfo is passed to EventListener.CloseEnd after FileWriter.Close.
type CloseInfo struct {
	FileSize int64
	Err      error
}

// EventListener contains hooks invoked synchronously on the writing
// goroutine as the FileWriter performs I/O. Every field is optional; a nil
// field is simply not invoked.
type EventListener struct {
	// WriteEnd fires after every sink write, whether it drains the buffer or
	// bypasses it. An Append whose bytes only land in the buffer fires
	// nothing until the buffer is written out.
	WriteEnd func(WriteInfo)

	// FlushEnd fires after every Flush, successful or not.
	FlushEnd func(FlushInfo)

	// SyncEnd fires after every sink Sync or Fsync: from Sync (buffered mode,
	// only when there are unsynced bytes), from SyncWithoutFlush, and from
	// the fsync Close issues in direct I/O mode.
	SyncEnd func(SyncInfo)

	// RangeSyncEnd fires after every range_sync, whether issued from Flush's
	// bytes-per-sync bookkeeping or by a direct FileWriter.RangeSync call.
	RangeSyncEnd func(RangeSyncInfo)

	// TruncateEnd fires after the truncate issued by Close in direct I/O
	// mode.
	TruncateEnd func(err error)

	// CloseEnd fires once, after Close has run all of its sub-steps.
	CloseEnd func(CloseInfo)
}

// EnsureDefaults replaces every unset hook with a no-op. The receiver must
// not be nil.
func (l *EventListener) EnsureDefaults() {
	if l.WriteEnd == nil {
		l.WriteEnd = func(WriteInfo) {}
	}
	if l.FlushEnd == nil {
		l.FlushEnd = func(FlushInfo) {}
	}
	if l.SyncEnd == nil {
		l.SyncEnd = func(SyncInfo) {}
	}
	if l.RangeSyncEnd == nil {
		l.RangeSyncEnd = func(RangeSyncInfo) {}
	}
	if l.TruncateEnd == nil {
		l.TruncateEnd = func(error) {}
	}
	if l.CloseEnd == nil {
		l.CloseEnd = func(CloseInfo) {}
	}
}

// Logger is the minimal logging interface the record package depends on.
type Logger interface {
	Infof(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// MakeLoggingEventListener returns an EventListener that logs, at Infof
// level, every hook invocation that reports an error. Successful operations
// are not logged.
func MakeLoggingEventListener(logger Logger) EventListener {
	if logger == nil {
		logger = DefaultLogger{}
	}
	return EventListener{
		WriteEnd: func(info WriteInfo) {
			if info.Err != nil {
				logger.Infof("record: write at %d (%d bytes) failed: %s", info.Offset, info.Size, info.Err)
			}
		},
		FlushEnd: func(info FlushInfo) {
			if info.Err != nil {
				logger.Infof("record: flush failed at file size %d: %s", info.FileSize, info.Err)
			}
		},
		SyncEnd: func(info SyncInfo) {
			if info.Err != nil {
				logger.Infof("record: sync (fsync=%t) failed: %s", info.UseFsync, info.Err)
			}
		},
		RangeSyncEnd: func(info RangeSyncInfo) {
			if info.Err != nil {
				logger.Infof("record: range_sync [%d,%d) failed: %s", info.Offset, info.Offset+info.Length, info.Err)
			}
		},
		TruncateEnd: func(err error) {
			if err != nil {
				logger.Infof("record: truncate failed: %s", err)
			}
		},
		CloseEnd: func(info CloseInfo) {
			if info.Err != nil {
				logger.Infof("record: close failed at file size %d: %s", info.FileSize, info.Err)
			}
		},
	}
}

// DefaultLogger logs to the Go stdlib log package.
type DefaultLogger struct{}

func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}

func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}

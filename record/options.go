// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package record

import "github.com/riftdb/wal/internal/ratelimiter"

// Options configures a FileWriter, using a struct-of-fields +
// EnsureDefaults() convention rather than functional options.
type Options struct {
	// InitialBufferSize is the Aligned buffer's starting capacity.
	InitialBufferSize int

	// MaxBufferSize is the ceiling the Aligned buffer may grow to before
	// Append falls back to flushing and bypass-writing.
	MaxBufferSize int

	// Alignment is the page alignment required for direct I/O positioned
	// writes. Ignored unless UseDirectIO is set.
	Alignment int

	// BytesPerSync, when non-zero, causes Flush to issue a RangeSync once
	// enough new, stable (not-recently-written) bytes have accumulated. 0
	// disables range-sync bookkeeping.
	BytesPerSync int64

	// UseDirectIO routes writes through write_direct[_with_checksum]
	// instead of write_buffered[_with_checksum], requiring the sink and the
	// buffer to maintain Alignment-aligned offsets and sizes.
	UseDirectIO bool

	// PerformDataVerification enables the handoff checksum handshake: every
	// sink write carries a CRC32C of the exact bytes being appended.
	PerformDataVerification bool

	// BufferedDataWithChecksum additionally maintains a running CRC32C of
	// the bytes currently staged in the buffer, used by
	// write_buffered_with_checksum to emit the whole buffer in one sink
	// call. Only meaningful alongside PerformDataVerification.
	BufferedDataWithChecksum bool

	// RecycleLogFiles selects the 11-byte recyclable header variant, which
	// embeds the low 32 bits of a log generation number so a reader can
	// detect stale data left over from a recycled log file.
	RecycleLogFiles bool

	// ManualFlush disables the Log Writer's automatic flush at the end of
	// every AddRecord; the caller is responsible for calling Flush.
	ManualFlush bool

	// RateLimiter optionally throttles bytes written to the sink. A nil
	// RateLimiter authorizes every request in full.
	RateLimiter *ratelimiter.Limiter

	// ChecksumGenerator optionally computes a whole-file checksum
	// incrementally as bytes are appended, finalized once during Close. A
	// nil ChecksumGenerator disables whole-file checksumming.
	ChecksumGenerator ChecksumGenerator

	// EventListener receives synchronous notifications of write/flush/sync/
	// range-sync/truncate/close completions.
	EventListener EventListener

	// Logger is set to DefaultLogger by EnsureDefaults when unset. The
	// FileWriter does not log through it, and the default EventListener
	// hooks are no-ops that log nothing.
	Logger Logger
}

// EnsureDefaults ensures every unset option has a sensible default and
// returns o itself, like the teacher's Options.EnsureDefaults(). The
// receiver must not be nil.
func (o *Options) EnsureDefaults() *Options {
	if o.InitialBufferSize <= 0 {
		o.InitialBufferSize = 64 << 10
	}
	if o.MaxBufferSize <= 0 {
		o.MaxBufferSize = 1 << 20
	}
	if o.MaxBufferSize < o.InitialBufferSize {
		o.MaxBufferSize = o.InitialBufferSize
	}
	if o.Alignment <= 0 {
		o.Alignment = 4096
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	o.EventListener.EnsureDefaults()
	return o
}

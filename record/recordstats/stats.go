// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package recordstats wires record.EventListener into Prometheus counters
// for scrape-facing metrics and HdrHistogram latency distributions for
// detailed quantile reporting.
package recordstats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/riftdb/wal/record"
)

const (
	minLatency = 10 * time.Microsecond
	maxLatency = 10 * time.Second
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatency.Nanoseconds(), maxLatency.Nanoseconds(), 1)
}

// latencyWindow is a mutex-guarded HdrHistogram that can be snapshotted,
// mirroring cmd/pebble/test.go's namedHistogram. It is never reset; it
// accumulates for the window's whole lifetime.
type latencyWindow struct {
	mu struct {
		sync.Mutex
		hist *hdrhistogram.Histogram
	}
}

func newLatencyWindow() *latencyWindow {
	w := &latencyWindow{}
	w.mu.hist = newHistogram()
	return w
}

func (w *latencyWindow) record(d time.Duration) {
	if d < minLatency {
		d = minLatency
	} else if d > maxLatency {
		d = maxLatency
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	// The window only ever drops out-of-range values, and d is clamped above,
	// so this can't fail.
	_ = w.mu.hist.RecordValue(d.Nanoseconds())
}

// Snapshot returns a copy of the histogram accumulated so far without
// resetting it.
func (w *latencyWindow) Snapshot() *hdrhistogram.Histogram {
	w.mu.Lock()
	defer w.mu.Unlock()
	snapshot := newHistogram()
	snapshot.Merge(w.mu.hist)
	return snapshot
}

// Collector supplies a record.EventListener (see EventListener) that tracks
// per-operation counts,
// byte totals and error counts as Prometheus counters (for scraping) and
// latency as an HdrHistogram window (for quantile reporting) alongside a
// Prometheus histogram (for scrape-facing latency buckets).
type Collector struct {
	Writes      prometheus.Counter
	WriteBytes  prometheus.Counter
	WriteErrors prometheus.Counter
	WriteLatency prometheus.Histogram

	Flushes      prometheus.Counter
	FlushErrors  prometheus.Counter
	FlushLatency prometheus.Histogram

	Syncs       prometheus.Counter
	SyncErrors  prometheus.Counter
	SyncLatency prometheus.Histogram

	RangeSyncs      prometheus.Counter
	RangeSyncErrors prometheus.Counter

	CloseErrors prometheus.Counter

	writeWindow *latencyWindow
	flushWindow *latencyWindow
	syncWindow  *latencyWindow
}

// NewCollector constructs a Collector with freshly created Prometheus
// metrics namespaced under "wal". It does not register the metrics with any
// registry; callers do that with the Collectors() method's return value.
func NewCollector() *Collector {
	c := &Collector{
		Writes:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "writes_total", Help: "Number of sink writes (Append or PositionedAppend) issued by the FileWriter."}),
		WriteBytes:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "write_bytes_total", Help: "Bytes appended to the sink."}),
		WriteErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "write_errors_total", Help: "Sink writes that returned an error."}),
		WriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wal", Subsystem: "record", Name: "write_latency_seconds", Help: "Sink write latency.", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12)}),

		Flushes:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "flushes_total", Help: "Number of FileWriter.Flush calls."}),
		FlushErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "flush_errors_total", Help: "Flushes that returned an error."}),
		FlushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wal", Subsystem: "record", Name: "flush_latency_seconds", Help: "Flush latency.", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12)}),

		Syncs:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "syncs_total", Help: "Number of sink Sync/Fsync calls issued by the FileWriter."}),
		SyncErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "sync_errors_total", Help: "Syncs that returned an error."}),
		SyncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wal", Subsystem: "record", Name: "sync_latency_seconds", Help: "Fsync/Sync latency.", Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12)}),

		RangeSyncs:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "range_syncs_total", Help: "Number of RangeSync calls issued by the FileWriter."}),
		RangeSyncErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "range_sync_errors_total", Help: "RangeSyncs that returned an error."}),

		CloseErrors: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wal", Subsystem: "record", Name: "close_errors_total", Help: "Closes that returned an error."}),

		writeWindow: newLatencyWindow(),
		flushWindow: newLatencyWindow(),
		syncWindow:  newLatencyWindow(),
	}
	return c
}

// Collectors returns every prometheus.Collector owned by c, for bulk
// registration with a prometheus.Registerer.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.Writes, c.WriteBytes, c.WriteErrors, c.WriteLatency,
		c.Flushes, c.FlushErrors, c.FlushLatency,
		c.Syncs, c.SyncErrors, c.SyncLatency,
		c.RangeSyncs, c.RangeSyncErrors,
		c.CloseErrors,
	}
}

// WriteLatencyQuantiles, FlushLatencyQuantiles and SyncLatencyQuantiles
// return the HdrHistogram accumulated for each operation since the
// Collector was constructed, for callers that want percentile reporting
// beyond what Prometheus's fixed buckets give (mirroring
// cmd/pebble/test.go's histogramRegistry.Tick).
func (c *Collector) WriteLatencyQuantiles() *hdrhistogram.Histogram { return c.writeWindow.Snapshot() }
func (c *Collector) FlushLatencyQuantiles() *hdrhistogram.Histogram { return c.flushWindow.Snapshot() }
func (c *Collector) SyncLatencyQuantiles() *hdrhistogram.Histogram  { return c.syncWindow.Snapshot() }

// EventListener returns a record.EventListener that reports every hook into
// c. The returned listener is safe to install directly as record.Options.EventListener.
func (c *Collector) EventListener() record.EventListener {
	return record.EventListener{
		WriteEnd: func(info record.WriteInfo) {
			c.Writes.Inc()
			c.WriteBytes.Add(float64(info.Size))
			c.WriteLatency.Observe(info.Duration.Seconds())
			c.writeWindow.record(info.Duration)
			if info.Err != nil {
				c.WriteErrors.Inc()
			}
		},
		FlushEnd: func(info record.FlushInfo) {
			c.Flushes.Inc()
			c.FlushLatency.Observe(info.Duration.Seconds())
			c.flushWindow.record(info.Duration)
			if info.Err != nil {
				c.FlushErrors.Inc()
			}
		},
		SyncEnd: func(info record.SyncInfo) {
			c.Syncs.Inc()
			c.SyncLatency.Observe(info.Duration.Seconds())
			c.syncWindow.record(info.Duration)
			if info.Err != nil {
				c.SyncErrors.Inc()
			}
		},
		RangeSyncEnd: func(info record.RangeSyncInfo) {
			c.RangeSyncs.Inc()
			if info.Err != nil {
				c.RangeSyncErrors.Inc()
			}
		},
		CloseEnd: func(info record.CloseInfo) {
			if info.Err != nil {
				c.CloseErrors.Inc()
			}
		},
	}
}

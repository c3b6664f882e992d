// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/riftdb/wal/internal/ratelimiter"
	"github.com/riftdb/wal/record"
	"github.com/riftdb/wal/record/recordstats"
	"github.com/riftdb/wal/vfs"
	"github.com/spf13/cobra"
)

var (
	writeDirectIO     bool
	writeAlignment    int
	writeBytesPerSync int64
	writeRecycle      bool
	writeLogNumber    uint64
	writeRateLimit    float64
	writeChecksum     bool
	writeSync         bool
	writeFsync        bool
	writeVerbose      bool
	writeMetrics      bool
)

var writeCmd = &cobra.Command{
	Use:   "write <file>",
	Short: "write WAL records from stdin lines into <file>",
	Long: `write reads newline-terminated records from stdin and appends each one
to <file> through the block-structured WAL writer, then reports the
resulting file size and (if enabled) whole-file checksum.`,
	Args: cobra.ExactArgs(1),
	Run:  runWrite,
}

func init() {
	writeCmd.Flags().BoolVar(&writeDirectIO, "direct-io", false, "use O_DIRECT writes")
	writeCmd.Flags().IntVar(&writeAlignment, "alignment", vfs.DefaultAlignment, "page alignment for direct I/O")
	writeCmd.Flags().Int64Var(&writeBytesPerSync, "bytes-per-sync", 0, "issue a range sync every N bytes (0 disables)")
	writeCmd.Flags().BoolVar(&writeRecycle, "recycle", false, "use the recyclable (log-number-tagged) record header")
	writeCmd.Flags().Uint64Var(&writeLogNumber, "log-number", 0, "log number embedded in recyclable headers")
	writeCmd.Flags().Float64Var(&writeRateLimit, "rate-limit-bytes-per-sec", 0, "cap sink write throughput (0 disables)")
	writeCmd.Flags().BoolVar(&writeChecksum, "checksum", false, "compute a whole-file xxhash64 checksum")
	writeCmd.Flags().BoolVar(&writeSync, "sync", false, "force a durable sync after the last record")
	writeCmd.Flags().BoolVar(&writeFsync, "fsync", true, "use fsync (vs. sync) when --sync is set")
	writeCmd.Flags().BoolVar(&writeVerbose, "verbose", false, "log every failed writer operation")
	writeCmd.Flags().BoolVar(&writeMetrics, "metrics", false, "print Prometheus counters after writing")
}

func runWrite(cmd *cobra.Command, args []string) {
	path := args[0]

	sink, err := vfs.Default.Create(path, writeDirectIO)
	if err != nil {
		fmt.Fprintln(os.Stderr, "walcat:", err)
		os.Exit(1)
	}

	opts := record.Options{
		UseDirectIO:  writeDirectIO,
		Alignment:    writeAlignment,
		BytesPerSync: writeBytesPerSync,
	}
	if writeRateLimit > 0 {
		opts.RateLimiter = ratelimiter.NewLimiter(writeRateLimit, writeRateLimit)
	}
	if writeChecksum {
		opts.ChecksumGenerator = record.NewXXHash64ChecksumGenerator()
	}

	var collector *recordstats.Collector
	switch {
	case writeMetrics:
		collector = recordstats.NewCollector()
		opts.EventListener = collector.EventListener()
	case writeVerbose:
		opts.EventListener = record.MakeLoggingEventListener(record.DefaultLogger{})
	}

	fw := record.NewFileWriter(path, sink, opts)
	lw := record.NewLogWriter(fw, writeLogNumber, writeRecycle, false)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64<<10), 64<<20)
	var records int
	for scanner.Scan() {
		if _, err := lw.AddRecord(scanner.Bytes()); err != nil {
			fmt.Fprintln(os.Stderr, "walcat:", err)
			os.Exit(1)
		}
		records++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "walcat: reading stdin:", err)
		os.Exit(1)
	}

	if writeSync {
		if err := lw.Sync(writeFsync); err != nil {
			fmt.Fprintln(os.Stderr, "walcat:", err)
			os.Exit(1)
		}
	}

	if err := lw.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "walcat:", err)
		os.Exit(1)
	}

	fmt.Printf("records: %d\n", records)
	fmt.Printf("size: %d\n", fw.GetFileSize())
	if writeChecksum {
		fmt.Printf("checksum (%s): %x\n", fw.GetFileChecksumFuncName(), fw.GetFileChecksum())
	}

	if collector != nil {
		printMetrics(collector)
	}
}

func printMetrics(c *recordstats.Collector) {
	counters := map[string]prometheus.Counter{
		"writes_total":       c.Writes,
		"write_bytes_total":  c.WriteBytes,
		"write_errors_total": c.WriteErrors,
		"flushes_total":      c.Flushes,
		"flush_errors_total": c.FlushErrors,
		"syncs_total":        c.Syncs,
		"sync_errors_total":  c.SyncErrors,
		"range_syncs_total":  c.RangeSyncs,
		"close_errors_total": c.CloseErrors,
	}
	for _, name := range []string{
		"writes_total", "write_bytes_total", "write_errors_total",
		"flushes_total", "flush_errors_total",
		"syncs_total", "sync_errors_total",
		"range_syncs_total", "close_errors_total",
	} {
		var m dto.Metric
		if err := counters[name].Write(&m); err == nil {
			fmt.Printf("%s: %g\n", name, m.GetCounter().GetValue())
		}
	}
}

// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/riftdb/wal/vfs"
	"github.com/spf13/cobra"
)

var statCmd = &cobra.Command{
	Use:   "stat <file>",
	Short: "report the on-disk size of a WAL file",
	Args:  cobra.ExactArgs(1),
	Run:   runStat,
}

func runStat(cmd *cobra.Command, args []string) {
	f, err := vfs.Default.Open(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "walcat:", err)
		os.Exit(1)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		fmt.Fprintln(os.Stderr, "walcat:", err)
		os.Exit(1)
	}
	fmt.Printf("size: %d\n", size)
}

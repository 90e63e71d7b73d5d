/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/buddy/buddy"
)

var (
	inspectArena  string
	inspectAllocs []string
	inspectFrees  []int
)

func init() {
	cmd := newInspectCmd()
	cmd.Flags().StringVar(&inspectArena, "arena", "1MiB", "Arena size, rounded up to a power of two")
	cmd.Flags().StringArrayVar(&inspectAllocs, "alloc", nil, "Allocate a block of this size (repeatable)")
	cmd.Flags().IntSliceVar(&inspectFrees, "free", nil, "Free the n-th allocation, 0-based (repeatable)")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the free-list table after a series of allocations",
		Long: `The inspect command creates a pool, performs the given allocations in
order, then the given frees, and prints the free-list table.

Example:
  buddyctl inspect --arena 1MiB --alloc 100 --alloc 4KiB --alloc 100 --free 0
  buddyctl inspect --alloc 1000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), inspectArena, inspectAllocs, inspectFrees)
		},
	}
}

type inspectAlloc struct {
	Size   int  `json:"size"`
	Offset int  `json:"offset"`
	Order  int  `json:"order"`
	OK     bool `json:"ok"`
}

type inspectReport struct {
	Allocs []inspectAlloc `json:"allocs"`
	Stats  buddy.Stats    `json:"stats"`
}

func runInspect(w io.Writer, arena string, allocs []string, frees []int) error {
	arenaSize, err := parseSize(arena)
	if err != nil {
		return err
	}
	p, err := buddy.New(arenaSize, buddy.WithLogger(newLogger(os.Stderr)))
	if err != nil {
		return err
	}
	defer p.Destroy()

	var (
		report inspectReport
		blocks [][]byte
	)
	for _, a := range allocs {
		size, err := parseSize(a)
		if err != nil {
			return err
		}
		b := p.Alloc(size)
		blocks = append(blocks, b)
		res := inspectAlloc{Size: size, Offset: -1, OK: b != nil}
		if b != nil {
			res.Offset = p.Offset(b)
			res.Order = max(buddy.OrderOf(uint64(size)+buddy.HeaderSize), buddy.MinOrder)
		}
		report.Allocs = append(report.Allocs, res)
	}
	for _, i := range frees {
		if i < 0 || i >= len(blocks) {
			return errors.Errorf("--free %d: only %d allocations", i, len(blocks))
		}
		p.Free(blocks[i])
	}
	if err := p.Check(); err != nil {
		return err
	}
	report.Stats = p.Stats()

	if jsonOut {
		return printJSON(w, report)
	}
	printInspect(w, report)
	return nil
}

func printInspect(w io.Writer, r inspectReport) {
	st := r.Stats
	fmt.Fprintf(w, "arena: %s (order %d)\n", humanize.IBytes(uint64(st.ArenaSize)), st.TopOrder)
	for i, a := range r.Allocs {
		if !a.OK {
			fmt.Fprintf(w, "alloc[%d] %d bytes: failed\n", i, a.Size)
			continue
		}
		fmt.Fprintf(w, "alloc[%d] %d bytes: offset %d order %d\n", i, a.Size, a.Offset, a.Order)
	}
	fmt.Fprintln(w, "free blocks:")
	for order, n := range st.FreeBlocks {
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "  order %2d (%8s): %d\n", order, humanize.IBytes(uint64(1)<<order), n)
	}
	fmt.Fprintf(w, "free: %s  reserved: %s\n",
		humanize.IBytes(uint64(st.FreeBytes)), humanize.IBytes(uint64(st.ReservedBytes)))
}

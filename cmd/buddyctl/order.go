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

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/buddy/buddy"
)

func init() {
	rootCmd.AddCommand(newOrderCmd())
}

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <size>...",
		Short: "Show the block order serving a request",
		Long: `The order command prints, for each request size, the order of the block
Alloc would hand out (header included, never below the minimum order)
and the raw power-of-two exponent of the size itself.

Example:
  buddyctl order 1 1000 64KiB`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(cmd.OutOrStdout(), args)
		},
	}
}

type orderInfo struct {
	Request   int `json:"request"`
	RawOrder  int `json:"raw_order"`
	Order     int `json:"order"`
	BlockSize int `json:"block_size"`
	Capacity  int `json:"capacity"`
}

func orderFor(size int) orderInfo {
	order := max(buddy.OrderOf(uint64(size)+buddy.HeaderSize), buddy.MinOrder)
	return orderInfo{
		Request:   size,
		RawOrder:  buddy.OrderOf(uint64(size)),
		Order:     order,
		BlockSize: 1 << order,
		Capacity:  1<<order - buddy.HeaderSize,
	}
}

func runOrder(w io.Writer, args []string) error {
	infos := make([]orderInfo, 0, len(args))
	for _, arg := range args {
		size, err := parseSize(arg)
		if err != nil {
			return err
		}
		if size == 0 {
			return errors.Errorf("size must be positive: %q", arg)
		}
		infos = append(infos, orderFor(size))
	}
	if jsonOut {
		return printJSON(w, infos)
	}
	for _, in := range infos {
		fmt.Fprintf(w, "%d bytes: order %d (%s block, %d usable), raw order %d\n",
			in.Request, in.Order, humanize.IBytes(uint64(in.BlockSize)), in.Capacity, in.RawOrder)
	}
	return nil
}

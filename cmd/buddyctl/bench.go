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
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloudwego/buddy/buddy"
	"github.com/cloudwego/buddy/buddy/buddymetrics"
)

type benchConfig struct {
	Arena   string
	MaxSize string
	Ops     int
	Pools   int
	Check   bool
	Metrics bool
}

var benchCfg = benchConfig{
	Arena:   "1MiB",
	MaxSize: "16KiB",
	Ops:     100000,
	Pools:   1,
}

func init() {
	cmd := newBenchCmd()
	cmd.Flags().StringVar(&benchCfg.Arena, "arena", benchCfg.Arena, "Arena size of each pool")
	cmd.Flags().StringVar(&benchCfg.MaxSize, "max-size", benchCfg.MaxSize, "Largest request size")
	cmd.Flags().IntVar(&benchCfg.Ops, "ops", benchCfg.Ops, "Alloc/free operations per pool")
	cmd.Flags().IntVar(&benchCfg.Pools, "pools", benchCfg.Pools, "Independent pools run in parallel")
	cmd.Flags().BoolVar(&benchCfg.Check, "check", false, "Verify the free-list table during the run")
	cmd.Flags().BoolVar(&benchCfg.Metrics, "metrics", false, "Dump Prometheus metrics of every pool")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run a random alloc/free workload",
		Long: `The bench command runs a random workload of allocations and frees on
one or more independent pools, each driven by its own goroutine. Every
pool is drained at the end and must be back to a single free block.

Example:
  buddyctl bench --arena 4MiB --ops 1000000 --pools 8
  buddyctl bench --check --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), newLogger(os.Stderr), benchCfg)
		},
	}
}

type benchResult struct {
	Pool     int           `json:"pool"`
	Allocs   int           `json:"allocs"`
	Failures int           `json:"failures"`
	Frees    int           `json:"frees"`
	PeakLive int           `json:"peak_live"`
	PeakUsed int           `json:"peak_used_bytes"`
	Elapsed  time.Duration `json:"elapsed"`
}

func runBench(ctx context.Context, w io.Writer, logger log.Logger, cfg benchConfig) error {
	arena, err := parseSize(cfg.Arena)
	if err != nil {
		return err
	}
	maxSize, err := parseSize(cfg.MaxSize)
	if err != nil {
		return err
	}
	if maxSize <= 0 || cfg.Ops < 0 || cfg.Pools <= 0 {
		return errors.Errorf("invalid bench config: max-size=%d ops=%d pools=%d", maxSize, cfg.Ops, cfg.Pools)
	}

	pools := make([]*buddy.Pool, cfg.Pools)
	defer func() {
		for _, p := range pools {
			if err := p.Destroy(); err != nil {
				level.Error(logger).Log("msg", "destroy pool", "err", err)
			}
		}
	}()
	for i := range pools {
		p, err := buddy.New(arena, buddy.WithLogger(log.With(logger, "pool", i)))
		if err != nil {
			return err
		}
		pools[i] = p
	}

	results := make([]benchResult, len(pools))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range pools {
		g.Go(func() error {
			res, err := runWorkload(ctx, p, cfg.Ops, maxSize, cfg.Check)
			if err != nil {
				return errors.Wrapf(err, "pool %d", i)
			}
			res.Pool = i
			results[i] = res
			level.Debug(logger).Log("msg", "workload done", "pool", i, "allocs", res.Allocs, "failures", res.Failures, "elapsed", res.Elapsed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			fmt.Fprintf(w, "pool %d: %d allocs, %d failed, %d frees, peak %d live / %s used, %v\n",
				r.Pool, r.Allocs, r.Failures, r.Frees, r.PeakLive, humanize.IBytes(uint64(r.PeakUsed)), r.Elapsed)
		}
	}
	if cfg.Metrics {
		return dumpMetrics(w, pools)
	}
	return nil
}

// runWorkload allocates two times out of three and frees a random live block
// otherwise, then frees everything and checks the pool is whole again.
func runWorkload(ctx context.Context, p *buddy.Pool, ops, maxSize int, check bool) (benchResult, error) {
	var (
		res  benchResult
		live [][]byte
	)
	initial := p.Available()
	checkEvery := max(ops/10, 1)
	start := time.Now()

	for i := 0; i < ops; i++ {
		if i%1024 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}
		if len(live) == 0 || fastrand.Intn(3) != 0 {
			b := p.Alloc(1 + fastrand.Intn(maxSize))
			if b == nil {
				res.Failures++
				continue
			}
			b[0] = byte(i)
			live = append(live, b)
			res.Allocs++
			res.PeakLive = max(res.PeakLive, len(live))
			res.PeakUsed = max(res.PeakUsed, p.Reserved())
		} else {
			idx := fastrand.Intn(len(live))
			p.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			res.Frees++
		}
		if check && i%checkEvery == 0 {
			if err := p.Check(); err != nil {
				return res, errors.Wrapf(err, "op %d", i)
			}
		}
	}
	for _, b := range live {
		p.Free(b)
		res.Frees++
	}
	res.Elapsed = time.Since(start)

	if err := p.Check(); err != nil {
		return res, err
	}
	if got := p.Available(); got != initial {
		return res, errors.Errorf("pool not whole after draining: available %d, want %d", got, initial)
	}
	return res, nil
}

func dumpMetrics(w io.Writer, pools []*buddy.Pool) error {
	reg := prometheus.NewRegistry()
	for i, p := range pools {
		c := buddymetrics.NewCollector(p, prometheus.Labels{"pool": strconv.Itoa(i)})
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cloudwego/buddy/buddy"
)

func TestRunBench(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out bytes.Buffer
	cfg := benchConfig{Arena: "1MiB", MaxSize: "8KiB", Ops: 5000, Pools: 4, Check: true}
	require.NoError(t, runBench(context.Background(), &out, log.NewNopLogger(), cfg))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, "pool "+string(rune('0'+i))+":"), line)
	}
}

func TestRunBenchMetrics(t *testing.T) {
	var out bytes.Buffer
	cfg := benchConfig{Arena: "1MiB", MaxSize: "1KiB", Ops: 100, Pools: 2, Metrics: true}
	require.NoError(t, runBench(context.Background(), &out, log.NewNopLogger(), cfg))

	s := out.String()
	assert.Contains(t, s, "# TYPE buddy_free_blocks gauge")
	assert.Contains(t, s, `buddy_arena_bytes{pool="0"} 1.048576e+06`)
	assert.Contains(t, s, `buddy_arena_bytes{pool="1"} 1.048576e+06`)
	assert.Contains(t, s, `buddy_reserved_bytes{pool="1"} 0`)
}

func TestRunBenchInvalid(t *testing.T) {
	var out bytes.Buffer
	ctx := context.Background()
	nop := log.NewNopLogger()

	assert.Error(t, runBench(ctx, &out, nop, benchConfig{Arena: "lots", MaxSize: "1KiB", Ops: 1, Pools: 1}))
	assert.Error(t, runBench(ctx, &out, nop, benchConfig{Arena: "1MiB", MaxSize: "1KiB", Ops: 1, Pools: 0}))
	assert.Error(t, runBench(ctx, &out, nop, benchConfig{Arena: "1MiB", MaxSize: "0", Ops: 1, Pools: 1}))
}

func TestRunBenchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	cfg := benchConfig{Arena: "1MiB", MaxSize: "1KiB", Ops: 10, Pools: 2}
	assert.ErrorIs(t, runBench(ctx, &out, log.NewNopLogger(), cfg), context.Canceled)
}

func TestRunWorkload(t *testing.T) {
	p, err := buddy.New(1 << 20)
	require.NoError(t, err)
	defer p.Destroy()

	res, err := runWorkload(context.Background(), p, 20000, 64<<10, true)
	require.NoError(t, err)
	assert.Equal(t, res.Allocs, res.Frees)
	assert.Positive(t, res.PeakLive)
	assert.Positive(t, res.Failures)
	assert.Equal(t, 0, p.Reserved())
}

func TestRunOrder(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runOrder(&out, []string{"1", "1000", "1KiB"}))
	assert.Equal(t, `1 bytes: order 6 (64 B block, 40 usable), raw order 0
1000 bytes: order 10 (1.0 KiB block, 1000 usable), raw order 10
1024 bytes: order 11 (2.0 KiB block, 2024 usable), raw order 10
`, out.String())

	assert.Error(t, runOrder(&out, []string{"0"}))
	assert.Error(t, runOrder(&out, []string{"many"}))
}

func TestRunOrderJSON(t *testing.T) {
	jsonOut = true
	defer func() { jsonOut = false }()

	var out bytes.Buffer
	require.NoError(t, runOrder(&out, []string{"5"}))
	var infos []orderInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
	assert.Equal(t, []orderInfo{{Request: 5, RawOrder: 3, Order: 6, BlockSize: 64, Capacity: 40}}, infos)
}

func TestRunInspect(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInspect(&out, "1MiB", []string{"100", "4KiB", "100", "2MiB"}, []int{0}))

	s := out.String()
	assert.Contains(t, s, "arena: 1.0 MiB (order 20)")
	assert.Contains(t, s, "alloc[0] 100 bytes: offset 0 order 7")
	assert.Contains(t, s, "alloc[1] 4096 bytes: offset 8192 order 13")
	assert.Contains(t, s, "alloc[2] 100 bytes: offset 128 order 7")
	assert.Contains(t, s, "alloc[3] 2097152 bytes: failed")

	assert.Error(t, runInspect(&out, "1MiB", []string{"100"}, []int{3}))
}

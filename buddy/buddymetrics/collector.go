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

// Package buddymetrics exports buddy pool statistics to Prometheus.
package buddymetrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudwego/buddy/buddy"
)

// StatsSource is implemented by *buddy.Pool and *buddy.Locked.
//
// A bare *buddy.Pool must only be collected from the goroutine that owns it,
// registries collect concurrently so prefer *buddy.Locked.
type StatsSource interface {
	Stats() buddy.Stats
}

// Collector implements prometheus.Collector for one pool.
type Collector struct {
	src StatsSource

	arenaBytes    *prometheus.Desc
	freeBytes     *prometheus.Desc
	reservedBytes *prometheus.Desc
	freeBlocks    *prometheus.Desc
	allocs        *prometheus.Desc
	allocFailures *prometheus.Desc
	frees         *prometheus.Desc
	rejectedFrees *prometheus.Desc
}

// NewCollector returns a collector reading src on every scrape.
// constLabels tell pools apart when several are registered.
func NewCollector(src StatsSource, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("buddy", "", name), help, labels, constLabels)
	}
	return &Collector{
		src:           src,
		arenaBytes:    desc("arena_bytes", "Size of the arena managed by the pool."),
		freeBytes:     desc("free_bytes", "Bytes held by free blocks, headers included."),
		reservedBytes: desc("reserved_bytes", "Bytes held by reserved blocks, headers included."),
		freeBlocks:    desc("free_blocks", "Number of free blocks per order.", "order"),
		allocs:        desc("allocs_total", "Total number of successful allocations."),
		allocFailures: desc("alloc_failures_total", "Total number of allocations that returned nil."),
		frees:         desc("frees_total", "Total number of blocks returned to the pool."),
		rejectedFrees: desc("rejected_frees_total", "Total number of frees of blocks that were already free."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.arenaBytes
	ch <- c.freeBytes
	ch <- c.reservedBytes
	ch <- c.freeBlocks
	ch <- c.allocs
	ch <- c.allocFailures
	ch <- c.frees
	ch <- c.rejectedFrees
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.arenaBytes, prometheus.GaugeValue, float64(st.ArenaSize))
	ch <- prometheus.MustNewConstMetric(c.freeBytes, prometheus.GaugeValue, float64(st.FreeBytes))
	ch <- prometheus.MustNewConstMetric(c.reservedBytes, prometheus.GaugeValue, float64(st.ReservedBytes))
	for order, n := range st.FreeBlocks {
		ch <- prometheus.MustNewConstMetric(c.freeBlocks, prometheus.GaugeValue, float64(n), strconv.Itoa(order))
	}
	ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(st.Allocs))
	ch <- prometheus.MustNewConstMetric(c.allocFailures, prometheus.CounterValue, float64(st.AllocFailures))
	ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(st.Frees))
	ch <- prometheus.MustNewConstMetric(c.rejectedFrees, prometheus.CounterValue, float64(st.RejectedFrees))
}

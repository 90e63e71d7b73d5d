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

package buddy

import "math/bits"

const (
	// DefaultOrder is the arena order used when New is called with size 0 (1GB).
	DefaultOrder = 30

	// MinArenaOrder is the smallest arena order (1MB).
	MinArenaOrder = 20

	// MaxArenaOrder is the largest arena order (128TB).
	MaxArenaOrder = 47

	// MinOrder is the order of the smallest block handed out, header included (64B).
	MinOrder = 6
)

// OrderOf returns the smallest k such that 2^k >= n.
// OrderOf(1) is 0. n must be > 0, OrderOf(0) also returns 0.
func OrderOf(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n - 1)
}

// blockOrder returns the order of the block serving a request of size bytes.
func blockOrder(size int) int {
	return max(OrderOf(uint64(size)+HeaderSize), MinOrder)
}

// arenaOrder maps a requested arena size to the order actually mapped.
// clamped reports whether the request fell outside [MinArenaOrder, MaxArenaOrder].
func arenaOrder(size int) (order int, clamped bool) {
	if size == 0 {
		return DefaultOrder, false
	}
	k := OrderOf(uint64(size))
	order = min(max(k, MinArenaOrder), MaxArenaOrder)
	return order, order != k
}

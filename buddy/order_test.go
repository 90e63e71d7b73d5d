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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderOf(t *testing.T) {
	tests := []struct {
		n    uint64
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{16, 4},
		{17, 5},
		{32, 5},
		{33, 6},
		{64, 6},
		{1024, 10},
		{1025, 11},
		{1 << 40, 40},
		{1<<40 + 1, 41},
		{1 << 63, 63},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OrderOf(tt.n), "n=%d", tt.n)
	}
	assert.Equal(t, 0, OrderOf(0))
}

func TestOrderOfBounds(t *testing.T) {
	// 2^(k-1) < n <= 2^k
	for k := 1; k <= 40; k++ {
		lo := uint64(1) << (k - 1)
		hi := uint64(1) << k
		assert.Equal(t, k, OrderOf(lo+1), "n=2^%d+1", k-1)
		assert.Equal(t, k, OrderOf(hi), "n=2^%d", k)
		assert.Equal(t, k+1, OrderOf(hi+1), "n=2^%d+1", k)
	}
}

func TestBlockOrder(t *testing.T) {
	assert.Equal(t, MinOrder, blockOrder(1))
	assert.Equal(t, MinOrder, blockOrder(1<<MinOrder-HeaderSize))
	assert.Equal(t, MinOrder+1, blockOrder(1<<MinOrder-HeaderSize+1))
	assert.Equal(t, 10, blockOrder(1000))
	assert.Equal(t, 11, blockOrder(1024))
	assert.Equal(t, 20, blockOrder(1<<20-HeaderSize))
	assert.Equal(t, 21, blockOrder(1<<20-HeaderSize+1))
}

func TestArenaOrder(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		order   int
		clamped bool
	}{
		{"default", 0, DefaultOrder, false},
		{"tiny", 128, MinArenaOrder, true},
		{"min", 1 << MinArenaOrder, MinArenaOrder, false},
		{"round_up", 1<<MinArenaOrder + 1, MinArenaOrder + 1, false},
		{"503MB", 503 << 20, 29, false},
		{"huge", 1 << 50, MaxArenaOrder, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, clamped := arenaOrder(tt.size)
			assert.Equal(t, tt.order, order)
			assert.Equal(t, tt.clamped, clamped)
		})
	}
}

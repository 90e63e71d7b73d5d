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
	"github.com/stretchr/testify/require"
)

func TestBuddyOfInvolution(t *testing.T) {
	p := newTestPool(t, 1<<MinArenaOrder)
	for order := MinOrder; order < p.TopOrder(); order++ {
		for _, off := range []uint64{0, 1 << order, 2 << order, 5 << order} {
			if off >= p.size {
				continue
			}
			b := buddyOf(off, order)
			assert.Less(t, b, p.size)
			assert.Equal(t, off, buddyOf(b, order), "order=%d off=%d", order, off)
			assert.Equal(t, uint64(1)<<order, off^b)
			lo, hi := min(off, b), max(off, b)
			assert.Equal(t, uint64(1)<<order, hi-lo)
		}
	}
}

func TestBuddyOfAllocated(t *testing.T) {
	p := newTestPool(t, 1<<MinArenaOrder)

	// two 64B blocks carved from the same parent
	b1 := p.Alloc(1)
	b2 := p.Alloc(1)
	require.NotNil(t, b1)
	require.NotNil(t, b2)

	o1, o2 := p.Offset(b1), p.Offset(b2)
	assert.Equal(t, 0, o1)
	assert.Equal(t, 1<<MinOrder, o2)
	assert.Equal(t, o2, p.BuddyOf(o1))
	assert.Equal(t, o1, p.BuddyOf(o2))
	assert.Equal(t, o1, p.BuddyOf(p.BuddyOf(o1)))
}

func TestBuddyOfPanics(t *testing.T) {
	p := newTestPool(t, 1<<MinArenaOrder)
	// the whole arena block has no buddy
	assert.Panics(t, func() { p.BuddyOf(0) })
	assert.Panics(t, func() { p.BuddyOf(-1) })
	assert.Panics(t, func() { p.BuddyOf(p.Size()) })
	assert.Panics(t, func() { p.BuddyOf(8) })
}

func TestBuddyOfRecursiveCoalescing(t *testing.T) {
	p := newTestPool(t, 1<<MinArenaOrder)
	k := p.TopOrder()

	// take the top block and split it by hand three times,
	// always keeping the left half
	top := p.avail[k].next
	p.remove(top)
	left := top
	var rights []uint64
	for o := k - 1; o >= k-3; o-- {
		right := left + uint64(1)<<o
		p.node(left).order = uint16(o)
		p.node(right).order = uint16(o)
		rights = append(rights, right)
	}
	left3, right3 := left, rights[2]

	p.insert(k-3, left3)
	p.insert(k-3, right3)
	assert.Equal(t, int(right3), p.BuddyOf(int(left3)))
	assert.Equal(t, int(left3), p.BuddyOf(int(right3)))

	// merge them as Free would
	p.remove(left3)
	p.remove(right3)
	merged := min(left3, right3)
	p.node(merged).order = uint16(k - 2)
	assert.Equal(t, int(merged)+1<<(k-2), p.BuddyOf(int(merged)))
	assert.Equal(t, int(rights[1]), p.BuddyOf(int(merged)))
}

func TestOffset(t *testing.T) {
	p := newTestPool(t, 1<<MinArenaOrder)
	assert.Equal(t, -1, p.Offset(nil))
	assert.Equal(t, -1, p.Offset(make([]byte, 10)))

	b := p.Alloc(100)
	require.NotNil(t, b)
	assert.Equal(t, 0, p.Offset(b))
	assert.Equal(t, 0, p.Offset(b[:0]))

	var nilPool *Pool
	assert.Equal(t, -1, nilPool.Offset(b))
}

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

import "github.com/pkg/errors"

// Stats is a snapshot of a pool's free-list table and counters.
type Stats struct {
	ArenaSize int `json:"arena_size"`
	TopOrder  int `json:"top_order"`

	// FreeBlocks[i] is the number of free blocks of order i, for i <= TopOrder.
	FreeBlocks []int `json:"free_blocks"`
	// FreeBytes and ReservedBytes count whole blocks, headers included.
	FreeBytes     int `json:"free_bytes"`
	ReservedBytes int `json:"reserved_bytes"`

	Allocs        uint64 `json:"allocs"`
	AllocFailures uint64 `json:"alloc_failures"`
	Frees         uint64 `json:"frees"`
	RejectedFrees uint64 `json:"rejected_frees"`
}

// Stats walks the free-list table. It costs O(number of free blocks).
func (p *Pool) Stats() Stats {
	s := Stats{
		ArenaSize:     int(p.size),
		TopOrder:      p.top,
		ReservedBytes: int(p.reserved),
		Allocs:        p.allocs,
		AllocFailures: p.allocFailures,
		Frees:         p.frees,
		RejectedFrees: p.rejectedFrees,
	}
	if p.base == nil {
		return s
	}
	s.FreeBlocks = make([]int, p.top+1)
	for order := range s.FreeBlocks {
		n := p.listLen(order)
		s.FreeBlocks[order] = n
		s.FreeBytes += n << order
	}
	return s
}

// Reserved returns the bytes held by reserved blocks, headers included.
func (p *Pool) Reserved() int {
	return int(p.reserved)
}

// Available returns the total number of bytes callers could still be handed,
// i.e. the size of every free block minus its header.
func (p *Pool) Available() int {
	if p == nil || p.base == nil {
		return 0
	}
	total := 0
	for order := MinOrder; order <= p.top; order++ {
		total += p.listLen(order) * (1<<order - HeaderSize)
	}
	return total
}

// Check verifies the free-list table:
//   - sentinels are tagged unused and carry their own order,
//   - every linked block is in bounds, aligned to its size, tagged available
//     with the order of its list, and its links are symmetric,
//   - free and reserved blocks add up to the arena size.
func (p *Pool) Check() error {
	if p.base == nil {
		return ErrDestroyed
	}
	var free uint64
	for order := 0; order <= p.top; order++ {
		head := &p.avail[order]
		if head.tag != tagUnused || int(head.order) != order {
			return errors.Errorf("buddy: sentinel %d corrupted: tag=%s order=%d", order, head.tag, head.order)
		}
		s := p.sentinel(order)
		prev := s
		for ref := head.next; ref != s; ref = p.node(ref).next {
			if ref >= p.size {
				return errors.Errorf("buddy: order %d: node %d is neither a block nor its sentinel", order, ref)
			}
			if ref&(uint64(1)<<order-1) != 0 {
				return errors.Errorf("buddy: order %d: block %d misaligned", order, ref)
			}
			n := p.node(ref)
			if n.tag != tagAvailable || int(n.order) != order {
				return errors.Errorf("buddy: order %d: block %d has tag=%s order=%d", order, ref, n.tag, n.order)
			}
			if n.prev != prev {
				return errors.Errorf("buddy: order %d: block %d prev=%d, want %d", order, ref, n.prev, prev)
			}
			free += uint64(1) << order
			if free > p.size {
				return errors.Errorf("buddy: order %d: free blocks exceed arena, list is cyclic", order)
			}
			prev = ref
		}
		if head.prev != prev {
			return errors.Errorf("buddy: order %d: sentinel prev=%d, want %d", order, head.prev, prev)
		}
	}
	if free+p.reserved != p.size {
		return errors.Errorf("buddy: free %d + reserved %d != arena %d", free, p.reserved, p.size)
	}
	return nil
}

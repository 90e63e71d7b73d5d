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
	"math"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

var (
	// ErrDestroyed is returned when a destroyed Pool is inspected.
	ErrDestroyed = errors.New("buddy: pool destroyed")

	errOutOfMemory = errors.New("buddy: arena too large")
)

// Pool is a buddy system allocator managing one contiguous arena of 2^k bytes.
//
// The whole arena starts as a single free block of the top order. Alloc
// repeatedly halves free blocks, keeping the lower half and returning the
// upper half to the free-list table, until the block is as small as the
// request allows. Free merges a block with its buddy for as long as the buddy
// is free and of the same order.
//
// A Pool is not safe for concurrent use, wrap it with NewLocked for that.
// Pools are independent: a slice returned by one Pool must never be passed to
// another Pool's Free.
type Pool struct {
	// arena is the mapped region; nil once destroyed.
	arena []byte
	// base caches &arena[0] for offset calculations.
	base unsafe.Pointer
	// size is len(arena), always 1<<top.
	size uint64
	top  int

	// avail is the free-list table. avail[i] is the sentinel of the circular
	// list of free blocks of order i. Entries above top are never used.
	avail [MaxArenaOrder + 1]header

	release func([]byte) error
	logger  log.Logger

	counters
}

type counters struct {
	reserved      uint64 // bytes of reserved blocks, headers included
	allocs        uint64
	allocFailures uint64
	frees         uint64
	rejectedFrees uint64
}

// New maps an arena of at least size bytes, rounded up to a power of two and
// clamped to [2^MinArenaOrder, 2^MaxArenaOrder]. A size of 0 maps an arena of
// 2^DefaultOrder bytes.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 0 {
		return nil, errors.Errorf("buddy: invalid arena size %d", size)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	order, clamped := arenaOrder(size)
	n := uint64(1) << order
	if n > math.MaxInt {
		return nil, errors.Wrapf(errOutOfMemory, "buddy: map %d byte arena", n)
	}
	if clamped {
		level.Warn(o.logger).Log("msg", "arena size clamped", "requested", size, "order", order)
	}

	arena, release, err := mapArena(int(n))
	if err != nil {
		return nil, errors.Wrapf(err, "buddy: map %d byte arena", n)
	}

	p := &Pool{
		arena:   arena,
		base:    unsafe.Pointer(unsafe.SliceData(arena)),
		size:    n,
		top:     order,
		release: release,
		logger:  o.logger,
	}
	p.seed()
	level.Debug(p.logger).Log("msg", "pool initialized", "size", n, "order", order, "requested", size)
	return p, nil
}

// MustNew is like New but panics if the arena cannot be mapped.
func MustNew(size int, opts ...Option) *Pool {
	p, err := New(size, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// seed empties the table and makes the whole arena one free top order block.
func (p *Pool) seed() {
	p.resetTable()
	p.insert(p.top, 0)
}

// Alloc returns a slice of len size backed by a block of the arena, or nil if
// size is not positive, exceeds what the arena can ever hold, or no block
// large enough is free.
// The slice has cap 2^k-HeaderSize where 2^k is the block size. Its contents
// are not zeroed on reuse.
func (p *Pool) Alloc(size int) []byte {
	if p == nil || p.base == nil || size <= 0 {
		return nil
	}
	k := blockOrder(size)
	if k > p.top {
		p.allocFailures++
		return nil
	}
	j := p.firstFit(k)
	if j < 0 {
		p.allocFailures++
		return nil
	}

	off := p.avail[j].next
	p.remove(off)
	// Keep the lower half, hand the upper half back.
	for j > k {
		j--
		p.insert(j, buddyOf(off, j))
	}

	h := p.node(off)
	h.tag = tagReserved
	h.order = uint16(k)

	blockSize := uint64(1) << k
	p.reserved += blockSize
	p.allocs++

	data := unsafe.Add(p.base, off+HeaderSize)
	return unsafe.Slice((*byte)(data), int(blockSize)-HeaderSize)[:size]
}

// Free returns a block obtained from Alloc to the pool and merges it with its
// buddies. It reports whether the block was released: nil slices, a nil or
// destroyed pool and blocks that are already free are ignored.
//
// It panics if b does not point to a block boundary of this arena.
//
// IMPORTANT: b must start where the slice returned by Alloc starts.
// Reslicing the end (b[:n]) is fine, b[n:] is not.
func (p *Pool) Free(b []byte) bool {
	if p == nil || p.base == nil || cap(b) == 0 {
		return false
	}
	off, ok := p.blockOffset(unsafe.Pointer(unsafe.SliceData(b)))
	if !ok {
		panic("buddy: block not in arena")
	}
	if off&(1<<MinOrder-1) != 0 {
		panic("buddy: misaligned block")
	}

	h := p.node(off)
	if h.tag == tagAvailable {
		// already free
		p.rejectedFrees++
		return false
	}
	order := int(h.order)
	if order < MinOrder || order > p.top || off&(uint64(1)<<order-1) != 0 {
		panic("buddy: corrupted block header")
	}
	p.reserved -= uint64(1) << order
	p.frees++

	h.tag = tagAvailable
	for order < p.top {
		bo := buddyOf(off, order)
		if bo >= p.size {
			break
		}
		bh := p.node(bo)
		if bh.tag != tagAvailable || int(bh.order) != order {
			break
		}
		p.remove(bo)
		off = min(off, bo)
		order++
	}
	p.insert(order, off)
	return true
}

// Reset discards every allocation and returns the pool to the state New left
// it in. Slices handed out before must not be used afterwards.
func (p *Pool) Reset() {
	if p == nil || p.base == nil {
		return
	}
	p.seed()
	p.reserved = 0
	level.Debug(p.logger).Log("msg", "pool reset", "size", p.size)
}

// Destroy unmaps the arena. The pool must not be used afterwards, except that
// further calls to Destroy are no-ops.
func (p *Pool) Destroy() error {
	if p == nil || p.arena == nil {
		return nil
	}
	err := p.release(p.arena)
	p.arena, p.base = nil, nil
	p.resetTable()
	p.counters = counters{}
	if err != nil {
		return errors.Wrap(err, "buddy: unmap arena")
	}
	level.Debug(p.logger).Log("msg", "pool destroyed", "size", p.size)
	return nil
}

// Size returns the arena size in bytes.
func (p *Pool) Size() int {
	return int(p.size)
}

// TopOrder returns log2 of the arena size.
func (p *Pool) TopOrder() int {
	return p.top
}

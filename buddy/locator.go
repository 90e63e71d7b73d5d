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

import "unsafe"

// buddyOf returns the offset of the order-k sibling of the block at off.
// The result is not validated.
func buddyOf(off uint64, order int) uint64 {
	return off ^ (uint64(1) << order)
}

// BuddyOf returns the offset of the buddy of the block whose header starts at
// off, using the order recorded in that header.
// It panics if off is not a block boundary inside the arena, or if the block
// spans the whole arena and therefore has no buddy.
func (p *Pool) BuddyOf(off int) int {
	if off < 0 || uint64(off) >= p.size {
		panic("buddy: block not in arena")
	}
	if off&(1<<MinOrder-1) != 0 {
		panic("buddy: misaligned block")
	}
	order := int(p.node(uint64(off)).order)
	if order >= p.top {
		panic("buddy: top order block has no buddy")
	}
	return int(buddyOf(uint64(off), order))
}

// Offset returns the offset of the header of a block returned by Alloc,
// or -1 if b does not point into the arena.
func (p *Pool) Offset(b []byte) int {
	if p == nil || p.base == nil || cap(b) == 0 {
		return -1
	}
	off, ok := p.blockOffset(unsafe.Pointer(unsafe.SliceData(b)))
	if !ok {
		return -1
	}
	return int(off)
}

// blockOffset converts a payload pointer to the offset of its header.
func (p *Pool) blockOffset(data unsafe.Pointer) (uint64, bool) {
	d := uintptr(data)
	start := uintptr(p.base) + uintptr(HeaderSize)
	if d < start || d >= uintptr(p.base)+uintptr(p.size) {
		return 0, false
	}
	return uint64(d - start), true
}

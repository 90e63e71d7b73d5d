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

type tag uint16

const (
	tagReserved  tag = 0 // owned by a caller
	tagAvailable tag = 1 // linked into a free list
	tagUnused    tag = 3 // sentinel
)

func (t tag) String() string {
	switch t {
	case tagReserved:
		return "reserved"
	case tagAvailable:
		return "available"
	case tagUnused:
		return "unused"
	}
	return "invalid"
}

// header prefixes every block in the arena and doubles as the sentinel type
// of the free-list table.
//
// next and prev are node references, not pointers: a block is referenced by
// its offset from the arena base, sentinel i by arena size + i.
// Headers hold no Go pointers, the arena may be memory the GC does not scan.
type header struct {
	tag   tag
	order uint16
	_     uint32
	next  uint64
	prev  uint64
}

// HeaderSize is the number of bytes in front of every slice returned by Alloc.
const HeaderSize = 24

var _ = [1]struct{}{}[unsafe.Sizeof(header{})-HeaderSize]

// sentinel returns the node reference of the table entry for order.
func (p *Pool) sentinel(order int) uint64 {
	return p.size + uint64(order)
}

// node resolves a node reference to its header.
func (p *Pool) node(ref uint64) *header {
	if ref >= p.size {
		return &p.avail[ref-p.size]
	}
	return (*header)(unsafe.Add(p.base, ref))
}

// resetTable makes every table entry an empty, self-linked sentinel.
func (p *Pool) resetTable() {
	for i := range p.avail {
		s := p.sentinel(i)
		p.avail[i] = header{tag: tagUnused, order: uint16(i), next: s, prev: s}
	}
}

// insert tags the block at ref as available at order and links it at the
// head of table[order].
func (p *Pool) insert(order int, ref uint64) {
	head := &p.avail[order]
	n := p.node(ref)
	n.tag = tagAvailable
	n.order = uint16(order)
	n.next = head.next
	n.prev = p.sentinel(order)
	p.node(head.next).prev = ref
	head.next = ref
}

// remove unlinks ref from whatever list it is in. tag and order are left as is.
func (p *Pool) remove(ref uint64) {
	n := p.node(ref)
	p.node(n.prev).next = n.next
	p.node(n.next).prev = n.prev
}

func (p *Pool) empty(order int) bool {
	return p.avail[order].next == p.sentinel(order)
}

// firstFit returns the lowest order >= order with a free block, or -1.
func (p *Pool) firstFit(order int) int {
	for o := order; o <= p.top; o++ {
		if !p.empty(o) {
			return o
		}
	}
	return -1
}

// listLen counts the blocks linked into table[order].
func (p *Pool) listLen(order int) int {
	n := 0
	s := p.sentinel(order)
	for ref := p.avail[order].next; ref != s; ref = p.node(ref).next {
		n++
	}
	return n
}

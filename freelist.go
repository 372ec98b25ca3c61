// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import "unsafe"

// sentinelBlock is a statically-allocated free-list head: a real header
// word plus a real pair of links, so that treating its address as a *block
// and calling linksPtr() on it reads and writes memory the struct actually
// owns, the same as any in-heap free block would.
type sentinelBlock struct {
	header uint64
	l      links
}

func (s *sentinelBlock) asBlock() *block { return (*block)(unsafe.Pointer(s)) }

// initSentinels makes every free-list head an empty self-loop.
func (a *Allocator) initSentinels() {
	for i := range a.freeLists {
		h := a.freeLists[i].asBlock()
		h.linksPtr().next = h
		h.linksPtr().prev = h
	}
}

// insertFree links b into the segregated-fit list matching its current
// size, after rewriting its header+footer as a canonical free block.
// Refuses (no-op) if b's links already look populated, mirroring the
// defensive idempotence of the source allocator.
func (a *Allocator) insertFree(b *block) {
	size := sizeOf(decode(b.header, a.magic()))
	b.writeFree(size, a.magic())

	l := b.linksPtr()
	if l.next != nil || l.prev != nil {
		return
	}

	head := a.freeLists[freeListIndex(size)].asBlock()
	hl := head.linksPtr()

	l.next = hl.next
	l.prev = head
	if hl.next != nil {
		hl.next.linksPtr().prev = b
	}
	hl.next = b
}

// removeFree unlinks b from whatever free list it's on. Refuses (no-op) if
// the links look corrupt: either nil, or a neighbor whose back-pointer
// doesn't actually name b.
func (a *Allocator) removeFree(b *block) {
	l := b.linksPtr()
	prev, next := l.prev, l.next
	if prev == nil || next == nil {
		return
	}
	if prev.linksPtr().next != b || next.linksPtr().prev != b {
		return
	}

	prev.linksPtr().next = next
	next.linksPtr().prev = prev
	l.next = nil
	l.prev = nil
}

// findFit performs first-fit search starting at size's own class and
// scanning every larger class, skipping anything that doesn't look like a
// legitimate free block.
func (a *Allocator) findFit(size int) *block {
	for index := freeListIndex(size); index < numFreeLists; index++ {
		head := a.freeLists[index].asBlock()
		for cur := head.linksPtr().next; cur != head; cur = cur.linksPtr().next {
			dh := cur.decode(a.magic())
			if dh.allocated || dh.size < minBlockSize {
				continue
			}
			if dh.size >= size {
				return cur
			}
		}
	}
	return nil
}

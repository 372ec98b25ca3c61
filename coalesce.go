// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import "unsafe"

func wordAt(addr uintptr) uint64 { return *(*uint64)(unsafe.Pointer(addr)) }

// neighbor describes what coalesceAndInsert found on one side of a block.
type neighbor struct {
	block *block
	size  int
	free  bool
}

// prevNeighbor reads the footer word immediately before b, if that address
// lies within the live heap (past the alignment pad). A free predecessor is
// reported with its block pointer and size recovered from the footer.
func (a *Allocator) prevNeighbor(b *block) neighbor {
	footerAddr := b.addr() - uintptr(footerSize)
	if footerAddr < a.heapDataStart() {
		return neighbor{}
	}

	w := decode(wordAt(footerAddr), a.magic())
	size := sizeOf(w)
	return neighbor{
		block: blockAt(b.addr() - uintptr(size)),
		size:  size,
		free:  !isAllocated(w),
	}
}

// nextNeighbor reads the header word immediately after a size-size block
// starting at b, if that address precedes the heap's current end (the
// epilogue always occupies the very last header-sized word, so this never
// reads past mapped memory).
func (a *Allocator) nextNeighbor(b *block, size int) neighbor {
	addr := b.addr() + uintptr(size)
	if addr >= a.mem.memEnd() {
		return neighbor{}
	}

	nb := blockAt(addr)
	w := decode(nb.header, a.magic())
	return neighbor{block: nb, size: sizeOf(w), free: !isAllocated(w)}
}

// coalesceAndInsert merges b with any free neighbors (b itself must already
// carry a canonical free header+footer), removing absorbed neighbors from
// their free lists first, then inserts the single resulting block into the
// free-list registry. Returns the surviving block. b must not be on any
// free list: its link words, which may still hold payload or quick-list
// bytes, are cleared so that insertFree accepts it.
func (a *Allocator) coalesceAndInsert(b *block) *block {
	size := sizeOf(decode(b.header, a.magic()))
	b.linksPtr().next, b.linksPtr().prev = nil, nil
	prev := a.prevNeighbor(b)
	next := a.nextNeighbor(b, size)

	switch {
	case prev.free && next.free:
		a.removeFree(prev.block)
		a.removeFree(next.block)
		merged := prev.size + size + next.size
		prev.block.writeFree(merged, a.magic())
		a.insertFree(prev.block)
		return prev.block
	case prev.free:
		a.removeFree(prev.block)
		merged := prev.size + size
		prev.block.writeFree(merged, a.magic())
		a.insertFree(prev.block)
		return prev.block
	case next.free:
		a.removeFree(next.block)
		merged := size + next.size
		b.writeFree(merged, a.magic())
		a.insertFree(b)
		return b
	default:
		b.writeFree(size, a.magic())
		a.insertFree(b)
		return b
	}
}

// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

// Test-only helpers that walk the allocator's internal sentinel arrays the
// way an external correctness harness would, since spec.md requires those
// arrays to be inspectable by population and size.

func (a *Allocator) freeBlockSizes() []int {
	var sizes []int
	for i := range a.freeLists {
		head := a.freeLists[i].asBlock()
		for cur := head.linksPtr().next; cur != head; cur = cur.linksPtr().next {
			sizes = append(sizes, sizeOf(decode(cur.header, a.magic())))
		}
	}
	return sizes
}

func (a *Allocator) quickListCount() int {
	n := 0
	for i := range a.quickLists {
		n += a.quickLists[i].length
	}
	return n
}

func (a *Allocator) quickListEntrySizes() []int {
	var sizes []int
	for i := range a.quickLists {
		for cur := a.quickLists[i].first; cur != nil; cur = cur.linksPtr().next {
			sizes = append(sizes, sizeOf(decode(cur.header, a.magic())))
		}
	}
	return sizes
}

// walkHeap returns the decoded header of every block from the first real
// block through (but not including) the epilogue, in address order.
func (a *Allocator) walkHeap() []decodedHeader {
	var out []decodedHeader
	addr := a.heapDataStart()
	end := a.mem.memEnd()
	for addr+uintptr(headerSize) < end {
		b := blockAt(addr)
		dh := b.decode(a.magic())
		if dh.size == 0 {
			break
		}
		out = append(out, dh)
		addr += uintptr(dh.size)
	}
	return out
}

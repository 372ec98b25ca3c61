// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

// quickList is one bounded LIFO stack of recently-freed, same-size-class
// blocks. Blocks are linked through the same links.next field a free-list
// block uses; links.prev is left untouched (quick lists are singly-linked).
type quickList struct {
	first  *block
	length int
}

// quickListPush stamps b as quick-listed and pushes it onto list index,
// flushing first if the list is already at capacity. index is not checked:
// the caller obtains it from quickListIndex.
func (a *Allocator) quickListPush(index, size int, b *block) {
	ql := &a.quickLists[index]
	if ql.length >= quickListMax {
		a.flushQuickList(index)
	}

	b.writeQuickListed(size, a.magic())
	b.linksPtr().next = ql.first
	ql.first = b
	ql.length++
}

// quickListPop removes and returns the most recently pushed block from
// list index, or nil if empty. It validates the popped block's flags and
// aborts the process on corruption, matching spec.md's quick-list pop
// discipline.
func (a *Allocator) quickListPop(index int) *block {
	ql := &a.quickLists[index]
	if ql.length == 0 {
		return nil
	}

	b := ql.first
	ql.first = b.linksPtr().next
	ql.length--

	dh := b.decode(a.magic())
	if !dh.allocated || !dh.inQuick {
		corruptionPanic(a, "quick list pop yielded a block without ALLOCATED+IN_QUICK_LIST set", b)
	}

	// Strip IN_QUICK_LIST, keep ALLOCATED and the original size; the caller
	// re-stamps the payload-size field for the new request.
	w := decode(b.header, a.magic())
	w &^= flagInQuickList
	b.header = encode(w, a.magic())
	return b
}

// flushQuickList drains list index back into the free-list registry,
// coalescing each drained block with its neighbors as it goes. Preserves
// the source allocator's behavior of only coalescing blocks that were
// already in the list before the call, see DESIGN.md Open Questions.
func (a *Allocator) flushQuickList(index int) {
	ql := &a.quickLists[index]
	cur := ql.first
	for cur != nil {
		next := cur.linksPtr().next

		dh := cur.decode(a.magic())
		cur.writeFree(dh.size, a.magic())
		a.coalesceAndInsert(cur)

		cur = next
	}
	ql.first = nil
	ql.length = 0
}

// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import "fmt"

func (a *Allocator) magic() uint64 { return a.mem.magicValue() }

// heapDataStart is the first byte of the first real block (past any
// alignment padding inserted by bootstrap).
func (a *Allocator) heapDataStart() uintptr {
	return a.mem.memStart() + uintptr(a.pad)
}

// ensureHeap lazily creates the backing page source on first use and
// bootstraps the heap if it is still empty, matching the spec's "called on
// first access when the heap is empty" bootstrap trigger.
func (a *Allocator) ensureHeap() error {
	if a.mem == nil {
		maxHeap := a.maxHeap
		if maxHeap == 0 {
			maxHeap = defaultMaxHeap
		}
		mem, err := newOSPages(maxHeap)
		if err != nil {
			return err
		}
		a.mem = mem
	}
	if a.mem.memStart() == a.mem.memEnd() {
		return a.bootstrap()
	}
	return nil
}

// bootstrap lays down the first page: alignment pad, prologue, a single
// large free block, and the epilogue sentinel.
func (a *Allocator) bootstrap() error {
	addr, ok := a.mem.grow()
	if !ok {
		a.err = ErrOutOfMemory
		return ErrOutOfMemory
	}
	a.totalHeapSize += pageSize

	a.initSentinels()
	for i := range a.quickLists {
		a.quickLists[i] = quickList{}
	}

	pad := 0
	if addr%alignment == 0 {
		pad = 8
	}
	a.pad = pad

	prologue := blockAt(addr + uintptr(pad))
	prologue.writeAllocated(prologueSize, 0, a.magic())

	freeSize := pageSize - pad - prologueSize - epilogueSize
	firstBlock := blockAt(prologue.addr() + uintptr(prologueSize))
	firstBlock.writeFree(freeSize, a.magic())

	epilogue := blockAt(firstBlock.addr() + uintptr(freeSize))
	epilogue.header = encode(makeAllocatedHeader(0, 0), a.magic())

	if trace {
		fmt.Printf("sfalloc: bootstrap pad=%d free=%d\n", pad, freeSize)
	}

	a.insertFree(firstBlock)
	return nil
}

// growOnePage extends the heap by one page, merging the new space with the
// previous final block if that block was free, writes the new epilogue,
// and registers the resulting free space.
func (a *Allocator) growOnePage() bool {
	if _, ok := a.mem.grow(); !ok {
		return false
	}
	a.totalHeapSize += pageSize

	newEnd := a.mem.memEnd()
	oldEpilogueAddr := newEnd - pageSize - uintptr(headerSize)
	newEpilogueAddr := newEnd - uintptr(headerSize)

	newEpilogue := blockAt(newEpilogueAddr)
	newEpilogue.header = encode(makeAllocatedHeader(0, 0), a.magic())

	const newBlockSize = pageSize

	prevFooterAddr := oldEpilogueAddr - uintptr(footerSize)
	if prevFooterAddr >= a.heapDataStart() {
		prevWord := decode(wordAt(prevFooterAddr), a.magic())
		if !isAllocated(prevWord) {
			prevSize := sizeOf(prevWord)
			prevBlock := blockAt(oldEpilogueAddr - uintptr(prevSize))
			a.removeFree(prevBlock)
			prevBlock.writeFree(prevSize+newBlockSize, a.magic())
			a.insertFree(prevBlock)
			if trace {
				fmt.Printf("sfalloc: grow merged with previous free block, new size=%d\n", prevSize+newBlockSize)
			}
			return true
		}
	}

	oldEpilogue := blockAt(oldEpilogueAddr)
	oldEpilogue.writeFree(newBlockSize, a.magic())
	a.insertFree(oldEpilogue)
	if trace {
		fmt.Printf("sfalloc: grow added fresh free block, size=%d\n", newBlockSize)
	}
	return true
}

// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import (
	"fmt"
	"unsafe"
)

// Allocator manages a contiguous heap region obtained from a page provider,
// servicing variable-sized allocation requests and reclaiming freed blocks.
// Its zero value is ready for use, backed by a built-in OS page provider
// with a default growth ceiling; use New with WithMaxHeap to change it.
//
// Allocator is not safe for concurrent use.
type Allocator struct {
	mem     pageSource
	maxHeap int
	pad     int

	freeLists  [numFreeLists]sentinelBlock
	quickLists [numQuickLists]quickList

	currentPayload int
	peakPayload    int
	totalHeapSize  int

	err error
}

// Option configures an Allocator built with New.
type Option func(*Allocator)

// WithMaxHeap bounds how many bytes the allocator's page provider will ever
// grow the heap to. The default is defaultMaxHeap.
func WithMaxHeap(bytes int) Option {
	return func(a *Allocator) { a.maxHeap = bytes }
}

// New constructs an Allocator. Calling New is optional: the zero value
// behaves identically, using defaultMaxHeap.
func New(opts ...Option) *Allocator {
	a := &Allocator{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Err returns the most recent error recorded by Allocate or Resize. It is
// never reset by a later successful call, so it is only meaningful when
// read immediately after a call that returned nil.
func (a *Allocator) Err() error { return a.err }

// Allocate returns a pointer to at least n freshly allocated, 16-byte
// aligned bytes, or nil (with Err() reporting ErrOutOfMemory) if the page
// provider is exhausted. Allocate(0) returns nil, nil: this is not an
// error, just a no-op.
func (a *Allocator) Allocate(n int) (unsafe.Pointer, error) {
	if n == 0 {
		return nil, nil
	}
	if err := a.ensureHeap(); err != nil {
		return nil, err
	}

	size := alignedBlockSize(n)

	if qi, ok := quickListIndex(size); ok {
		if b := a.quickListPop(qi); b != nil {
			b.writeAllocated(size, n, a.magic())
			a.currentPayload += n
			if a.currentPayload > a.peakPayload {
				a.peakPayload = a.currentPayload
			}
			if trace {
				fmt.Printf("sfalloc: allocate(%d) served from quick list, block size=%d\n", n, size)
			}
			return unsafe.Pointer(b.payload()), nil
		}
	}

	b := a.findFit(size)
	for b == nil {
		if !a.growOnePage() {
			a.err = ErrOutOfMemory
			return nil, ErrOutOfMemory
		}
		b = a.findFit(size)
	}

	a.splitAndAllocate(b, size, n)
	if trace {
		fmt.Printf("sfalloc: allocate(%d) split block to size=%d\n", n, size)
	}
	return unsafe.Pointer(b.payload()), nil
}

// splitAndAllocate removes b from its free list, splits off a free tail
// when the leftover is large enough to stand on its own (the "splinter"
// rule: anything under minBlockSize is absorbed into the allocated block
// instead), and stamps b as allocated with the given payload size.
func (a *Allocator) splitAndAllocate(b *block, want, payload int) {
	full := sizeOf(decode(b.header, a.magic()))
	leftover := full - want
	a.removeFree(b)

	effective := want
	if leftover >= minBlockSize {
		tail := blockAt(b.addr() + uintptr(want))
		tail.writeFree(leftover, a.magic())
		tail.linksPtr().next, tail.linksPtr().prev = nil, nil
		a.insertFree(tail)
	} else {
		effective = full
	}

	b.writeAllocated(effective, payload, a.magic())

	a.currentPayload += payload
	if a.currentPayload > a.peakPayload {
		a.peakPayload = a.currentPayload
	}
}

// Release reclaims the block backing p. Release(nil) is a no-op.
func (a *Allocator) Release(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}

	b := blockFromPayload(uintptr(p))
	dh := b.decode(a.magic())
	a.currentPayload -= dh.payload

	if qi, ok := quickListIndex(dh.size); ok {
		a.quickListPush(qi, dh.size, b)
		if trace {
			fmt.Printf("sfalloc: release quick-listed block size=%d\n", dh.size)
		}
		return nil
	}

	b.writeFree(dh.size, a.magic())
	a.coalesceAndInsert(b)
	if trace {
		fmt.Printf("sfalloc: release coalesced block size=%d\n", dh.size)
	}
	return nil
}

// Resize changes the size of the allocation backing p to n bytes, as
// realloc(3) would: Resize(nil, n) behaves as Allocate(n); Resize(p, 0)
// releases p and returns nil. When growing past the current block's
// capacity, the payload is copied into a fresh allocation and p is
// released; when shrinking (or growing into existing splinter room), the
// block is resized in place and the same pointer is returned.
func (a *Allocator) Resize(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	if p == nil {
		return a.Allocate(n)
	}
	if n == 0 {
		return nil, a.Release(p)
	}

	b := blockFromPayload(uintptr(p))
	dh := b.decode(a.magic())
	currentSize := dh.size
	oldPayload := dh.payload

	aligned := alignedBlockSize(n)

	if aligned > currentSize {
		q, err := a.Allocate(n)
		if err != nil {
			return nil, err
		}

		copySize := n
		if oldPayload < copySize {
			copySize = oldPayload
		}
		if copySize > 0 {
			dst := unsafe.Slice((*byte)(q), copySize)
			src := unsafe.Slice((*byte)(p), copySize)
			copy(dst, src)
		}

		// Preserves the source allocator's redundant payload increment on
		// the grow-larger path: Allocate already counted n, and this
		// counts it again before Release backs
		// out the old payload. See DESIGN.md "Open Questions".
		a.currentPayload += n

		if err := a.Release(p); err != nil {
			return nil, err
		}
		return q, nil
	}

	if currentSize-aligned < minBlockSize {
		a.currentPayload += n - oldPayload
		if a.currentPayload > a.peakPayload {
			a.peakPayload = a.currentPayload
		}
		b.writeAllocated(currentSize, n, a.magic())
		return p, nil
	}

	a.currentPayload += n - oldPayload
	if a.currentPayload > a.peakPayload {
		a.peakPayload = a.currentPayload
	}
	b.writeAllocated(aligned, n, a.magic())

	tailSize := currentSize - aligned
	tail := blockAt(b.addr() + uintptr(aligned))
	tail.writeFree(tailSize, a.magic())
	a.coalesceAndInsert(tail)

	return p, nil
}

// Bytes views the n payload bytes starting at p as a []byte, for callers
// that would rather not juggle unsafe.Pointer arithmetic themselves. p
// must have been returned by Allocate or Resize and n must not exceed the
// block's payload size.
func (a *Allocator) Bytes(p unsafe.Pointer, n int) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import "unsafe"

const (
	pageSize = 4096 // bytes granted per call to the page provider's grow.

	wordSize      = int(unsafe.Sizeof(uint64(0))) // header and footer are one word each.
	headerSize    = wordSize
	footerSize    = wordSize
	minBlockSize  = 32 // smallest legal block, header+footer+16 bytes of body.
	alignment     = 16
	prologueSize  = minBlockSize
	epilogueSize  = headerSize

	numFreeLists  = 10
	numQuickLists = 10
	quickListMax  = 5

	// Flag bits live in the reserved low nibble of the header word so that
	// masking with sizeMask always yields a clean size regardless of which
	// flags are set.
	flagAllocated  uint64 = 0x8
	flagInQuickList uint64 = 0x4
	sizeMask       uint64 = ^uint64(0xF)
)

// roundup rounds n up to the next multiple of m. m must be a power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// alignedBlockSize computes the total block size (header+payload+footer,
// rounded to alignment) needed to hold n payload bytes.
func alignedBlockSize(n int) int {
	size := roundup(n+headerSize+footerSize, alignment)
	if size < minBlockSize {
		size = minBlockSize
	}
	return size
}

// block overlays the first bytes of a heap region. Its header lives at
// offset 0; for a free block, a pair of *block pointers (the segregated-fit
// list links) overlay the body immediately after the header; for an
// allocated block the same bytes hold payload. The footer word lives at
// offset size-footerSize and is read through footerAt, never through this
// struct, since its offset depends on the block's own size.
type block struct {
	header uint64
}

// links overlays the free-list next/prev pointers stored in a free block's
// body. Only valid while the block is free or quick-listed (a quick-listed
// block uses next alone).
type links struct {
	next, prev *block
}

func blockAt(addr uintptr) *block { return (*block)(unsafe.Pointer(addr)) }

func (b *block) addr() uintptr { return uintptr(unsafe.Pointer(b)) }

func (b *block) linksPtr() *links {
	return (*links)(unsafe.Pointer(b.addr() + uintptr(headerSize)))
}

func footerAt(addr uintptr, size int) *uint64 {
	return (*uint64)(unsafe.Pointer(addr + uintptr(size) - uintptr(footerSize)))
}

func (b *block) footer(size int) *uint64 { return footerAt(b.addr(), size) }

// payload returns the address handed back to clients: the first byte past
// the header.
func (b *block) payload() uintptr { return b.addr() + uintptr(headerSize) }

func blockFromPayload(p uintptr) *block { return blockAt(p - uintptr(headerSize)) }

// decode strips the obfuscation XOR.
func decode(word, magic uint64) uint64 { return word ^ magic }

// encode applies the obfuscation XOR (its own inverse).
func encode(word, magic uint64) uint64 { return word ^ magic }

func sizeOf(word uint64) int      { return int(uint32(word & sizeMask)) }
func payloadOf(word uint64) int   { return int(word >> 32) }
func isAllocated(word uint64) bool { return word&flagAllocated != 0 }
func isInQuickList(word uint64) bool { return word&flagInQuickList != 0 }

func makeFreeHeader(size int) uint64 {
	return uint64(size) & sizeMask
}

func makeAllocatedHeader(size, payload int) uint64 {
	return (uint64(size) & sizeMask) | flagAllocated | (uint64(payload) << 32)
}

func makeQuickListHeader(size int) uint64 {
	return (uint64(size) & sizeMask) | flagAllocated | flagInQuickList
}

// decodedHeader is the plaintext view of a block's header word, used
// wherever more than one field is read at once to avoid decoding twice.
type decodedHeader struct {
	size      int
	payload   int
	allocated bool
	inQuick   bool
}

func (b *block) decode(magic uint64) decodedHeader {
	w := decode(b.header, magic)
	return decodedHeader{
		size:      sizeOf(w),
		payload:   payloadOf(w),
		allocated: isAllocated(w),
		inQuick:   isInQuickList(w),
	}
}

// writeFree stamps b with a canonical free header and matching footer.
func (b *block) writeFree(size int, magic uint64) {
	w := encode(makeFreeHeader(size), magic)
	b.header = w
	*b.footer(size) = w
}

// writeAllocated stamps b with an allocated header (given payload) and
// matching footer.
func (b *block) writeAllocated(size, payload int, magic uint64) {
	w := encode(makeAllocatedHeader(size, payload), magic)
	b.header = w
	*b.footer(size) = w
}

// writeQuickListed stamps b with a quick-listed header and matching footer.
func (b *block) writeQuickListed(size int, magic uint64) {
	w := encode(makeQuickListHeader(size), magic)
	b.header = w
	*b.footer(size) = w
}

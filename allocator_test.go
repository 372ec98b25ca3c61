// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import (
	"sort"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, maxHeap int) *Allocator {
	t.Helper()
	return New(WithMaxHeap(maxHeap))
}

// TestSingleInt is seed scenario 1: a lone small allocation leaves exactly
// one free block and touches exactly one page.
func TestSingleInt(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	p, err := a.Allocate(4)
	r.NoError(err)
	r.NotNil(p)

	r.Equal(0, a.quickListCount())
	r.Equal([]int{4016}, a.freeBlockSizes())
	r.NoError(a.Err())
	r.Equal(uintptr(pageSize), a.mem.memEnd()-a.mem.memStart())
}

// TestTooLarge is seed scenario 2: a request too big for the configured
// heap ceiling fails with ErrOutOfMemory, and the free space accumulated by
// the growth attempts that did succeed survives as a single free block.
func TestTooLarge(t *testing.T) {
	r := require.New(t)
	// 37 pages = 151552 bytes; minus the 8-byte pad, 32-byte prologue and
	// 8-byte epilogue overhead, leaves a single 151504-byte free block once
	// every page has been coalesced together, matching the scenario.
	a := newTestAllocator(t, 37*pageSize)

	p, err := a.Allocate(151505)
	r.ErrorIs(err, ErrOutOfMemory)
	r.Nil(p)
	r.ErrorIs(a.Err(), ErrOutOfMemory)
	r.Equal([]int{151504}, a.freeBlockSizes())
}

// TestQuickRelease is seed scenario 3.
func TestQuickRelease(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	_, err := a.Allocate(8)
	r.NoError(err)
	y, err := a.Allocate(32)
	r.NoError(err)
	_, err = a.Allocate(1)
	r.NoError(err)

	r.NoError(a.Release(y))

	r.Equal(1, a.quickListCount())
	r.Equal([]int{48}, a.quickListEntrySizes())
	r.Equal([]int{3936}, a.freeBlockSizes())
}

// TestCoalesce is seed scenario 4.
func TestCoalesce(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	_, err := a.Allocate(8)
	r.NoError(err)
	x, err := a.Allocate(200)
	r.NoError(err)
	y, err := a.Allocate(300)
	r.NoError(err)
	_, err = a.Allocate(4)
	r.NoError(err)

	r.NoError(a.Release(y))
	r.NoError(a.Release(x))

	sizes := a.freeBlockSizes()
	sort.Ints(sizes)
	r.Equal([]int{544, 3440}, sizes)
	r.Equal(0, a.quickListCount())
}

// TestResizeGrowLarger is seed scenario 5.
func TestResizeGrowLarger(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	x, err := a.Allocate(4)
	r.NoError(err)
	_, err = a.Allocate(10)
	r.NoError(err)

	x2, err := a.Resize(x, 80)
	r.NoError(err)
	r.NotNil(x2)

	b := blockFromPayload(uintptr(x2))
	dh := b.decode(a.magic())
	r.Equal(96, dh.size)
	r.True(dh.allocated)

	r.Equal([]int{32}, a.quickListEntrySizes())
	r.Equal([]int{3888}, a.freeBlockSizes())
}

// TestResizeSplinter is seed scenario 6.
func TestResizeSplinter(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	x, err := a.Allocate(80)
	r.NoError(err)

	before := a.freeBlockSizes()

	y, err := a.Resize(x, 64)
	r.NoError(err)
	r.Equal(x, y)

	b := blockFromPayload(uintptr(y))
	dh := b.decode(a.magic())
	r.Equal(96, dh.size)

	r.Equal(before, a.freeBlockSizes(), "splinter resize must not create a new free block")
}

// TestAllocateZeroIsNoop covers spec.md §7's "invalid argument" case.
func TestAllocateZeroIsNoop(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	p, err := a.Allocate(0)
	r.NoError(err)
	r.Nil(p)
	r.Nil(a.Err())
}

// TestReleaseNilIsNoop covers Release(NONE).
func TestReleaseNilIsNoop(t *testing.T) {
	a := newTestAllocator(t, defaultMaxHeap)
	require.NoError(t, a.Release(nil))
}

// TestResizeNilBehavesAsAllocate and TestResizeZeroBehavesAsRelease cover
// the two degenerate Resize cases from spec.md §4.7.
func TestResizeNilBehavesAsAllocate(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	p, err := a.Resize(nil, 40)
	r.NoError(err)
	r.NotNil(p)
	r.Equal(1, len(a.freeBlockSizes()))
}

func TestResizeZeroBehavesAsRelease(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	p, err := a.Allocate(40)
	r.NoError(err)

	q, err := a.Resize(p, 0)
	r.NoError(err)
	r.Nil(q)
}

// TestPayloadRoundTrip is property P8: shrinking a resize preserves the
// pointer and the retained bytes.
func TestPayloadRoundTrip(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	p, err := a.Allocate(64)
	r.NoError(err)

	src := a.Bytes(p, 64)
	for i := range src {
		src[i] = byte(i)
	}

	q, err := a.Resize(p, 32)
	r.NoError(err)
	r.Equal(p, q)

	got := a.Bytes(q, 32)
	for i := 0; i < 32; i++ {
		r.Equal(byte(i), got[i])
	}
}

// TestAllocationsAre16ByteAligned is property P5.
func TestAllocationsAre16ByteAligned(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	for _, n := range []int{1, 4, 15, 16, 17, 100, 1000} {
		p, err := a.Allocate(n)
		r.NoError(err)
		r.Zero(uintptr(p) % 16)
	}
}

// TestMetricsBounds is property P6.
func TestMetricsBounds(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	ptrs := make([]unsafe.Pointer, 0, 8)
	for _, n := range []int{8, 200, 300, 4, 1024} {
		p, err := a.Allocate(n)
		r.NoError(err)
		ptrs = append(ptrs, p)
	}

	r.GreaterOrEqual(a.Fragmentation(), 0.0)
	r.LessOrEqual(a.Fragmentation(), 1.0)
	r.GreaterOrEqual(a.Utilization(), 0.0)
	r.LessOrEqual(a.Utilization(), 1.0)

	for _, p := range ptrs {
		r.NoError(a.Release(p))
	}

	r.Equal(0.0, a.Fragmentation())
}

// TestNoAdjacentFreeBlocks is property P2, checked after releasing every
// other block of a mixed workload. Each released block that is not
// quick-listed has allocated neighbors, so no merge takes place.
func TestNoAdjacentFreeBlocks(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	var ptrs []unsafe.Pointer
	for _, n := range []int{8, 200, 300, 4, 64, 512, 16} {
		p, err := a.Allocate(n)
		r.NoError(err)
		ptrs = append(ptrs, p)
	}
	for i := 1; i < len(ptrs); i += 2 {
		r.NoError(a.Release(ptrs[i]))
	}

	walk := a.walkHeap()
	for i := 1; i < len(walk); i++ {
		prevFree := !walk[i-1].allocated
		curFree := !walk[i].allocated
		r.False(prevFree && curFree, "adjacent free blocks at positions %d,%d", i-1, i)
	}
}

// TestFreeFooterMatchesHeader is property P3.
func TestFreeFooterMatchesHeader(t *testing.T) {
	r := require.New(t)
	a := newTestAllocator(t, defaultMaxHeap)

	p, err := a.Allocate(32)
	r.NoError(err)
	r.NoError(a.Release(p))

	for _, dh := range a.walkHeap() {
		_ = dh // walkHeap only decodes; the free-list walk below does the checking
	}

	for i := range a.freeLists {
		head := a.freeLists[i].asBlock()
		for cur := head.linksPtr().next; cur != head; cur = cur.linksPtr().next {
			size := sizeOf(decode(cur.header, a.magic()))
			r.Equal(cur.header, *cur.footer(size), "header/footer mismatch on free block")
		}
	}
}

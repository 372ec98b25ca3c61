// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

// Fragmentation reports the fraction of currently-allocated bytes that are
// actual client payload, walking every block from the first real block
// (past the alignment pad bootstrap always inserts) to the current heap
// end. Quick-listed blocks carry the ALLOCATED bit and a zero payload
// field, so they count toward the denominator but not the numerator,
// exactly as the reference allocator's walk does. Returns 0 if nothing is
// currently allocated.
func (a *Allocator) Fragmentation() float64 {
	if a.mem == nil {
		return 0.0
	}

	var totalPayload, totalAllocated int
	addr := a.heapDataStart()
	end := a.mem.memEnd()

	for addr+uintptr(headerSize) < end {
		b := blockAt(addr)
		dh := b.decode(a.magic())
		if dh.size == 0 || addr+uintptr(dh.size) > end {
			break
		}

		if dh.allocated {
			totalPayload += dh.payload
			totalAllocated += dh.size
		}

		addr += uintptr(dh.size)
	}

	if totalAllocated == 0 {
		return 0.0
	}
	return float64(totalPayload) / float64(totalAllocated)
}

// Utilization reports peak client payload as a fraction of the cumulative
// bytes ever granted by the page provider. It only ever grows less steep
// over time: total_heap_size never shrinks, peak_payload is a high-water
// mark. Returns 0 if the heap has never been touched.
func (a *Allocator) Utilization() float64 {
	if a.totalHeapSize == 0 {
		return 0.0
	}
	return float64(a.peakPayload) / float64(a.totalHeapSize)
}

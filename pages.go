// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

// pageSource is the external collaborator that owns the raw address space:
// it brackets the current heap and extends it a page at a time. Production
// code is backed by osPages (pages_unix.go / pages_windows.go); tests may
// substitute a smaller, faster fake.
type pageSource interface {
	memStart() uintptr
	memEnd() uintptr
	grow() (uintptr, bool)
	magicValue() uint64
}

// defaultMaxHeap bounds how far the built-in page source will grow an
// Allocator's zero value. 64 MiB keeps every block size representable in
// the header's 28-bit size field with room to spare.
const defaultMaxHeap = 64 << 20

// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

// freeListIndex returns the segregated-fit list index for a block of the
// given size: classes double starting at minBlockSize, with the last index
// acting as a catch-all for anything larger.
func freeListIndex(size int) int {
	index := 0
	classSize := minBlockSize
	for index < numFreeLists-1 && size > classSize {
		classSize *= 2
		index++
	}
	return index
}

// quickListIndex returns the quick-list index for size, and whether size
// is small enough to be quick-listable at all.
func quickListIndex(size int) (int, bool) {
	if size < minBlockSize || size > minBlockSize+16*(numQuickLists-1) {
		return 0, false
	}
	return (size - minBlockSize) / 16, true
}

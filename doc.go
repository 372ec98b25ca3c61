// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sfalloc implements a user-space dynamic storage allocator over a
// contiguous heap obtained from a page-granular provider.
//
// The design is a classic segregated-fit free list layered with small-block
// "quick lists", bidirectional boundary-tag coalescing, splitting and
// on-demand heap growth. Every header and footer word is obfuscated with a
// process-lifetime XOR constant as a lightweight integrity check: a stray
// zero write decodes to a non-zero, almost certainly invalid, word.
//
// Allocator is not safe for concurrent use; callers must serialize access
// themselves, the same way a C allocator expects its caller to hold
// whatever lock protects the heap.
package sfalloc

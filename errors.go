// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import (
	"errors"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// ErrOutOfMemory is returned (and recorded on the Allocator for later
// inspection via Err) when the page provider can no longer grow the heap.
// The allocator remains perfectly usable afterwards; this is a recoverable,
// local failure.
var ErrOutOfMemory = errors.New("sfalloc: out of memory")

// corruptionError marks a detected heap-invariant violation. It is never
// returned to a caller: corruptionPanic always panics with one, since
// spec.md treats corruption as unrecoverable and requires the process to
// abort rather than continue operating on a heap that may no longer be
// self-consistent.
type corruptionError struct {
	reason string
}

func (e *corruptionError) Error() string { return "sfalloc: heap corruption: " + e.reason }

// corruptionPanic dumps the offending block (header, decoded fields, and
// link pointers) to stderr and panics. Callers should not attempt to
// recover: spec.md §7 requires the allocator to abort rather than continue
// operating over a heap that failed an invariant check.
func corruptionPanic(a *Allocator, reason string, b *block) {
	dh := b.decode(a.magic())
	fmt.Fprintf(os.Stderr, "sfalloc: heap corruption detected: %s\n", reason)
	fmt.Fprintln(os.Stderr, spew.Sdump(struct {
		Addr    uintptr
		Raw     uint64
		Decoded decodedHeader
	}{b.addr(), b.header, dh}))
	panic(&corruptionError{reason: reason})
}

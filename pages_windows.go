// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2024 The Segalloc Authors.

//go:build windows

package sfalloc

import (
	"fmt"
	"syscall"
)

// osPages mirrors pages_unix.go's reserve-then-commit strategy using
// VirtualAlloc: MEM_RESERVE up front, MEM_COMMIT a page at a time on grow.
type osPages struct {
	base    uintptr
	reserve int
	mapped  int
	magic   uint64
}

func newOSPages(maxBytes int) (*osPages, error) {
	reserve := roundup(maxBytes, pageSize)
	addr, err := virtualAlloc(0, uintptr(reserve), memReserve, pageNoAccess)
	if err != nil {
		return nil, fmt.Errorf("sfalloc: reserve %d bytes: %w", reserve, err)
	}

	magic, err := randomMagic()
	if err != nil {
		return nil, err
	}

	return &osPages{base: addr, reserve: reserve, magic: magic}, nil
}

func (p *osPages) memStart() uintptr  { return p.base }
func (p *osPages) memEnd() uintptr    { return p.base + uintptr(p.mapped) }
func (p *osPages) magicValue() uint64 { return p.magic }

func (p *osPages) grow() (uintptr, bool) {
	if p.mapped+pageSize > p.reserve {
		return 0, false
	}

	addr := p.base + uintptr(p.mapped)
	if _, err := virtualAlloc(addr, uintptr(pageSize), memCommit, pageReadWrite); err != nil {
		if trace {
			fmt.Printf("sfalloc: grow VirtualAlloc failed: %v\n", err)
		}
		return 0, false
	}

	p.mapped += pageSize
	return addr, true
}

const (
	memCommit     = 0x00001000
	memReserve    = 0x00002000
	pageNoAccess  = 0x01
	pageReadWrite = 0x04
)

var (
	modkernel32     = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAlloc = modkernel32.NewProc("VirtualAlloc")
)

func virtualAlloc(addr, size uintptr, allocType, protect uint32) (uintptr, error) {
	r, _, err := procVirtualAlloc.Call(addr, size, uintptr(allocType), uintptr(protect))
	if r == 0 {
		return 0, err
	}
	return r, nil
}

// Copyright 2024 The Segalloc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfalloc

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// randomMagic draws the process-lifetime header obfuscation constant.
// There is no ecosystem library for "one random uint64 at process start"
// worth pulling in over crypto/rand; this is the one piece of the ambient
// stack that stays on the standard library on purpose.
func randomMagic() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("sfalloc: generate magic: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package libpf holds the small value types shared between the parsing and the
// registration side of addsym.
package libpf // import "github.com/addsym/addsym/libpf"

import (
	"fmt"
	"strconv"
	"strings"
)

// Address represents an absolute address in the debugged process, or an offset
// relative to a module load base.
type Address uint64

// Hash32 returns a 32 bits hash of the address. It is used as the hash callback
// of address keyed LRU caches.
func (adr Address) Hash32() uint32 {
	return uint32(adr.Hash())
}

// Hash returns a 64 bits hash of the address using the Murmur3 finalizer.
func (adr Address) Hash() uint64 {
	x := uint64(adr)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// String formats the address the way debuggers print pointers.
func (adr Address) String() string {
	return fmt.Sprintf("0x%x", uint64(adr))
}

// ParseAddress parses a hexadecimal address as typed on a debugger command line.
// The 0x prefix is optional and a backtick separator (00000001`40000000) is accepted.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "`", "")
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return Address(v), nil
}

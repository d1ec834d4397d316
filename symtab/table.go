// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package symtab implements the module relative symbol table that is rebuilt from a
// disassembler export. Entries are keyed by their offset from the module load base so
// that a table can be registered at whatever address the module is loaded at.
package symtab // import "github.com/addsym/addsym/symtab"

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/zeebo/xxh3"
)

// DefaultFunctionSize is the size given to a function entry until an address
// range refines it.
const DefaultFunctionSize = 4

// Kind tells whether an entry describes code or data.
type Kind uint8

const (
	Function Kind = iota
	Data
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Data:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Entry is one symbol at a module relative offset. An empty Name is valid and
// means that no name has been found for the offset (yet).
type Entry struct {
	Kind   Kind
	Name   string
	Offset uint64
	Size   uint32
}

// Table maps module relative offsets to entries. Offsets are unique: setting an
// entry at an offset that is already present replaces the previous entry.
//
// A Table is not safe for concurrent mutation.
type Table struct {
	entries map[uint64]*Entry
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[uint64]*Entry)}
}

// Set inserts e, replacing any entry at the same offset.
func (t *Table) Set(e Entry) {
	t.entries[e.Offset] = &e
}

// Get returns the entry at offset. The returned pointer refers to the table's own
// entry and may be used to refine it in place.
func (t *Table) Get(offset uint64) (*Entry, bool) {
	e, ok := t.entries[offset]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Named returns the number of entries that carry a name.
func (t *Table) Named() int {
	n := 0
	for _, e := range t.entries {
		if e.Name != "" {
			n++
		}
	}
	return n
}

// Entries returns a copy of all entries in ascending offset order.
func (t *Table) Entries() []Entry {
	res := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		res = append(res, *e)
	}
	slices.SortFunc(res, func(a, b Entry) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return res
}

// Visit calls fn for each entry in ascending offset order until fn returns false.
func (t *Table) Visit(fn func(Entry) bool) {
	for _, e := range t.Entries() {
		if !fn(e) {
			return
		}
	}
}

// Fingerprint hashes the content of the table. Two tables with the same entries
// have the same fingerprint regardless of the order the entries were added in.
func (t *Table) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [13]byte
	for _, e := range t.Entries() {
		binary.LittleEndian.PutUint64(buf[0:], e.Offset)
		binary.LittleEndian.PutUint32(buf[8:], e.Size)
		buf[12] = byte(e.Kind)
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(e.Name)
		// Terminate the name so that adjacent names can not alias.
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

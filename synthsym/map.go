// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package synthsym

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	lru "github.com/elastic/go-freelru"

	"github.com/addsym/addsym/libpf"
)

// ErrSymbolExists is returned when a symbol is added at an address that already
// has one.
var ErrSymbolExists = errors.New("symbol already exists at address")

// ErrNoSymbol is returned by lookups that found nothing.
var ErrNoSymbol = errors.New("symbol not found")

// Symbol is a registered synthetic symbol.
type Symbol struct {
	Name    string
	Address libpf.Address
	Size    uint32
}

// End returns the first address past the symbol.
func (s Symbol) End() libpf.Address {
	return s.Address + libpf.Address(s.Size)
}

type lookupResult struct {
	index int
	ok    bool
}

// Map is an in-process symbol store for a debugging session. It implements
// Registrar and resolves addresses back to the symbols covering them.
// Map is safe for concurrent use.
type Map struct {
	mu sync.RWMutex
	// symbols is sorted by address
	symbols []Symbol
	byName  map[string]int

	// lookups caches address resolution. It is purged whenever a symbol is added.
	lookups *lru.SyncedLRU[libpf.Address, lookupResult]
}

var _ Registrar = &Map{}

// NewMap creates an empty Map caching up to cacheSize address lookups.
func NewMap(cacheSize uint32) (*Map, error) {
	lookups, err := lru.NewSynced[libpf.Address, lookupResult](cacheSize,
		libpf.Address.Hash32)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}
	return &Map{
		byName:  make(map[string]int),
		lookups: lookups,
	}, nil
}

func compareAddress(s Symbol, addr libpf.Address) int {
	return cmp.Compare(s.Address, addr)
}

// AddSyntheticSymbol adds a symbol. Adding is cheapest in ascending address order.
func (m *Map) AddSyntheticSymbol(addr libpf.Address, size uint32, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, found := slices.BinarySearchFunc(m.symbols, addr, compareAddress)
	if found {
		return fmt.Errorf("%w %v (%s)", ErrSymbolExists, addr, m.symbols[i].Name)
	}
	m.symbols = slices.Insert(m.symbols, i, Symbol{Name: name, Address: addr, Size: size})
	if i != len(m.symbols)-1 {
		// Indexes past the insertion point moved.
		for n, idx := range m.byName {
			if idx >= i {
				m.byName[n] = idx + 1
			}
		}
	}
	if _, ok := m.byName[name]; !ok {
		m.byName[name] = i
	}
	m.lookups.Purge()
	return nil
}

// Len returns the number of symbols.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.symbols)
}

// LookupSymbol returns the symbol called name. If several symbols share the name,
// the one added first is returned.
func (m *Map) LookupSymbol(name string) (Symbol, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i, ok := m.byName[name]; ok {
		return m.symbols[i], nil
	}
	return Symbol{}, fmt.Errorf("%w: %s", ErrNoSymbol, name)
}

// LookupByAddress returns the symbol covering addr and the offset of addr into it.
// A symbol covers the addresses from its start up to its size, a symbol of size zero
// covers everything up to the next symbol.
func (m *Map) LookupByAddress(addr libpf.Address) (sym Symbol, offset uint64, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.lookups.Get(addr)
	if !ok {
		res = m.lookup(addr)
		m.lookups.Add(addr, res)
	}
	if !res.ok {
		return Symbol{}, 0, fmt.Errorf("%w at %v", ErrNoSymbol, addr)
	}
	sym = m.symbols[res.index]
	return sym, uint64(addr - sym.Address), nil
}

func (m *Map) lookup(addr libpf.Address) lookupResult {
	i, found := slices.BinarySearchFunc(m.symbols, addr, compareAddress)
	if found {
		return lookupResult{index: i, ok: true}
	}
	if i == 0 {
		return lookupResult{}
	}
	i--
	if addr >= m.symbols[i].End() && m.symbols[i].Size != 0 {
		return lookupResult{}
	}
	return lookupResult{index: i, ok: true}
}

// Symbols returns a copy of all symbols in ascending address order.
func (m *Map) Symbols() []Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.symbols)
}

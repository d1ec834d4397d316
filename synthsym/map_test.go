// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package synthsym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addsym/addsym/libpf"
)

func assertLookup(t *testing.T, m *Map, addr libpf.Address, eName string, eOffset uint64) {
	t.Helper()
	sym, offset, err := m.LookupByAddress(addr)
	if assert.NoError(t, err) {
		assert.Equal(t, eName, sym.Name)
		assert.Equal(t, eOffset, offset)
	}
}

func TestMapLookupByAddress(t *testing.T) {
	m, err := NewMap(16)
	require.NoError(t, err)

	require.NoError(t, m.AddSyntheticSymbol(0x401005, 4, "gets_s"))
	require.NoError(t, m.AddSyntheticSymbol(0x401010, 0x7f, "_main"))
	require.NoError(t, m.AddSyntheticSymbol(0x4fee68, 0x18, "g_UiPool"))
	require.NoError(t, m.AddSyntheticSymbol(0x500000, 0, "unsized"))
	assert.Equal(t, 4, m.Len())

	assertLookup(t, m, 0x401005, "gets_s", 0)
	assertLookup(t, m, 0x401008, "gets_s", 3)
	assertLookup(t, m, 0x40108e, "_main", 0x7e)
	assertLookup(t, m, 0x4fee70, "g_UiPool", 8)
	// Cached result.
	assertLookup(t, m, 0x4fee70, "g_UiPool", 8)
	assertLookup(t, m, 0x5fffff, "unsized", 0xfffff)

	for _, addr := range []libpf.Address{0x401004, 0x401009, 0x40108f, 0x4fee80} {
		_, _, err = m.LookupByAddress(addr)
		assert.ErrorIsf(t, err, ErrNoSymbol, "address %v", addr)
	}
}

func TestMapAddInvalidatesCache(t *testing.T) {
	m, err := NewMap(16)
	require.NoError(t, err)

	require.NoError(t, m.AddSyntheticSymbol(0x2000, 0x10, "high"))
	_, _, err = m.LookupByAddress(0x1004)
	require.ErrorIs(t, err, ErrNoSymbol)

	// Insert below the existing symbol.
	require.NoError(t, m.AddSyntheticSymbol(0x1000, 0x10, "low"))
	assertLookup(t, m, 0x1004, "low", 4)
	assertLookup(t, m, 0x2004, "high", 4)

	sym, err := m.LookupSymbol("high")
	require.NoError(t, err)
	assert.Equal(t, Symbol{Name: "high", Address: 0x2000, Size: 0x10}, sym)
	assert.Equal(t, libpf.Address(0x2010), sym.End())

	assert.Equal(t, []Symbol{
		{Name: "low", Address: 0x1000, Size: 0x10},
		{Name: "high", Address: 0x2000, Size: 0x10},
	}, m.Symbols())
}

func TestMapRejectsDuplicateAddress(t *testing.T) {
	m, err := NewMap(16)
	require.NoError(t, err)

	require.NoError(t, m.AddSyntheticSymbol(0x1000, 4, "first"))
	err = m.AddSyntheticSymbol(0x1000, 8, "second")
	require.ErrorIs(t, err, ErrSymbolExists)
	assert.Equal(t, 1, m.Len())

	_, err = m.LookupSymbol("second")
	require.ErrorIs(t, err, ErrNoSymbol)
}

func TestMapDuplicateNames(t *testing.T) {
	m, err := NewMap(16)
	require.NoError(t, err)

	require.NoError(t, m.AddSyntheticSymbol(0x3000, 4, "dup"))
	require.NoError(t, m.AddSyntheticSymbol(0x1000, 4, "dup"))
	require.NoError(t, m.AddSyntheticSymbol(0x2000, 4, "other"))

	sym, err := m.LookupSymbol("dup")
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x3000), sym.Address)

	sym, err = m.LookupSymbol("other")
	require.NoError(t, err)
	assert.Equal(t, libpf.Address(0x2000), sym.Address)
}

func TestMapRegister(t *testing.T) {
	m, err := NewMap(16)
	require.NoError(t, err)

	sum := Register(exampleTable(), 0x10000000, m)
	assert.Equal(t, Summary{Named: 2, Registered: 2}, sum)
	assertLookup(t, m, 0x10001006, "gets_s", 1)

	// Registering the same module again fails for every symbol.
	sum = Register(exampleTable(), 0x10000000, m)
	assert.Equal(t, Summary{Named: 2, Failed: 2}, sum)
}

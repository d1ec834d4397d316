// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package synthsym

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addsym/addsym/libpf"
	"github.com/addsym/addsym/symtab"
)

type call struct {
	addr libpf.Address
	size uint32
	name string
}

// recorder is a Registrar test double that records its calls and rejects names
// listed in reject.
type recorder struct {
	calls  []call
	reject map[string]bool
}

func (r *recorder) AddSyntheticSymbol(addr libpf.Address, size uint32, name string) error {
	if r.reject[name] {
		return errors.New("rejected")
	}
	r.calls = append(r.calls, call{addr: addr, size: size, name: name})
	return nil
}

func exampleTable() *symtab.Table {
	tab := symtab.New()
	tab.Set(symtab.Entry{Kind: symtab.Data, Name: "g_UiPool", Offset: 0xfee68, Size: 0x18})
	tab.Set(symtab.Entry{Kind: symtab.Data, Name: "", Offset: 0xfee90, Size: 0x4})
	tab.Set(symtab.Entry{Kind: symtab.Function, Name: "gets_s", Offset: 0x1005, Size: 4})
	tab.Set(symtab.Entry{Kind: symtab.Function, Name: "", Offset: 0x2000, Size: 0x10})
	return tab
}

func TestRegister(t *testing.T) {
	rec := &recorder{}
	sum := Register(exampleTable(), 0x7ff6a0000000, rec)

	assert.Equal(t, Summary{Named: 2, Registered: 2}, sum)
	assert.Equal(t, []call{
		{addr: 0x7ff6a0001005, size: 4, name: "gets_s"},
		{addr: 0x7ff6a00fee68, size: 0x18, name: "g_UiPool"},
	}, rec.calls)
}

func TestRegisterSkipsUnnamed(t *testing.T) {
	tab := symtab.New()
	tab.Set(symtab.Entry{Kind: symtab.Data, Offset: 0x10, Size: 4})
	tab.Set(symtab.Entry{Kind: symtab.Function, Offset: 0x20, Size: 4})

	rec := &recorder{}
	sum := Register(tab, 0x400000, rec)
	assert.Equal(t, Summary{}, sum)
	assert.Empty(t, rec.calls)
}

func TestRegisterFailures(t *testing.T) {
	rec := &recorder{reject: map[string]bool{"gets_s": true}}
	sum := Register(exampleTable(), 0x400000, rec)

	assert.Equal(t, Summary{Named: 2, Registered: 1, Failed: 1}, sum)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "g_UiPool", rec.calls[0].name)
}

func TestRegisterDemangle(t *testing.T) {
	tab := symtab.New()
	tab.Set(symtab.Entry{Kind: symtab.Function, Name: "_Z3fooi", Offset: 0x10, Size: 4})
	tab.Set(symtab.Entry{Kind: symtab.Function, Name: "plain_c", Offset: 0x20, Size: 4})

	rec := &recorder{}
	Register(tab, 0, rec, WithDemangle())
	require.Len(t, rec.calls, 2)
	assert.Equal(t, "foo(int)", rec.calls[0].name)
	assert.Equal(t, "plain_c", rec.calls[1].name)

	rec = &recorder{}
	Register(tab, 0, rec)
	assert.Equal(t, "_Z3fooi", rec.calls[0].name)
}

func TestRegisterProgress(t *testing.T) {
	tab := symtab.New()
	for i := 0; i < 7; i++ {
		tab.Set(symtab.Entry{Kind: symtab.Function, Name: "f", Offset: uint64(i) * 0x10, Size: 4})
	}

	var calls []int
	sum := Register(tab, 0, &recorder{}, WithProgress(3, func(n int) { calls = append(calls, n) }))
	assert.Equal(t, 7, sum.Registered)
	assert.Equal(t, []int{3, 6}, calls)
}

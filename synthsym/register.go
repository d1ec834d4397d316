// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package synthsym registers a module relative symbol table as synthetic symbols
// of a debugging session: symbols that exist only in the debugger and bind a name
// and a size to an absolute address of the debugged process.
package synthsym // import "github.com/addsym/addsym/synthsym"

import (
	"github.com/ianlancetaylor/demangle"
	log "github.com/sirupsen/logrus"

	"github.com/addsym/addsym/libpf"
	"github.com/addsym/addsym/symtab"
)

// Registrar binds a name and size to an absolute address.
type Registrar interface {
	AddSyntheticSymbol(addr libpf.Address, size uint32, name string) error
}

// Summary reports the outcome of Register.
type Summary struct {
	// Named is the number of table entries that have a name.
	Named int
	// Registered is the number of symbols the Registrar accepted.
	Registered int
	// Failed is the number of symbols the Registrar rejected.
	Failed int
}

type options struct {
	demangle      bool
	progressEvery int
	progress      func(registered int)
}

// Option configures Register.
type Option func(*options)

// WithDemangle registers demangled names for Itanium C++ and Rust symbols. Names
// that are not mangled are registered unchanged.
func WithDemangle() Option {
	return func(o *options) {
		o.demangle = true
	}
}

// WithProgress calls fn after every 'every' registered symbols.
func WithProgress(every int, fn func(registered int)) Option {
	return func(o *options) {
		o.progressEvery = every
		o.progress = fn
	}
}

// Register hands every named entry of tab to r, in ascending offset order, at
// address imageBase+offset. imageBase is where the module is loaded in the
// debugged process; it is unrelated to the base the export was made at.
// Entries without a name are skipped.
func Register(tab *symtab.Table, imageBase libpf.Address, r Registrar, opts ...Option) Summary {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var sum Summary
	tab.Visit(func(e symtab.Entry) bool {
		if e.Name == "" {
			return true
		}
		sum.Named++

		name := e.Name
		if o.demangle {
			name = demangle.Filter(name)
		}
		addr := imageBase + libpf.Address(e.Offset)
		if err := r.AddSyntheticSymbol(addr, e.Size, name); err != nil {
			log.Debugf("Failed to add symbol %s at %v: %v", name, addr, err)
			sum.Failed++
			return true
		}
		sum.Registered++
		if o.progress != nil && o.progressEvery > 0 && sum.Registered%o.progressEvery == 0 {
			o.progress(sum.Registered)
		}
		return true
	})
	return sum
}

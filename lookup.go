// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"github.com/addsym/addsym/libpf"
	"github.com/addsym/addsym/source"
	"github.com/addsym/addsym/synthsym"
)

type lookupCmd struct {
	root *rootArgs

	cacheSize uint
	demangle  bool
	list      bool
	stdout    io.Writer
}

func newLookupCmd(root *rootArgs) *ffcli.Command {
	args := &lookupCmd{root: root, stdout: os.Stdout}

	set := flag.NewFlagSet("lookup", flag.ContinueOnError)
	set.UintVar(&args.cacheSize, "cache-size", defaultLookupCacheSize, cacheHelp)
	set.BoolVar(&args.demangle, "demangle", false, demangleHelp)
	set.BoolVar(&args.list, "list", false, listHelp)

	return &ffcli.Command{
		Name:       "lookup",
		Exec:       args.exec,
		ShortUsage: "lookup [flags] <image-base> <export> [<address|name>...]",
		ShortHelp:  "Register an export in memory and resolve addresses or names",
		FlagSet:    set,
		Options:    subcommandOptions(root),
	}
}

func (cmd *lookupCmd) exec(ctx context.Context, args []string) error {
	if len(args) < 2 || (len(args) == 2 && !cmd.list) {
		return errors.New("expected <image-base> <export> and at least one address or name")
	}
	mods, err := parseModuleArgs(args[:2])
	if err != nil {
		return err
	}
	mod := mods[0]

	tab, err := loadTable(ctx, &source.Opener{}, mod.path, nil)
	if err != nil {
		return err
	}

	m, err := synthsym.NewMap(uint32(cmd.cacheSize))
	if err != nil {
		return err
	}
	var opts []synthsym.Option
	if cmd.demangle {
		opts = append(opts, synthsym.WithDemangle())
	}
	sum := synthsym.Register(tab.table, mod.imageBase, m, opts...)
	log.Debugf("%s: %d symbols registered at %v", mod.path, sum.Registered, mod.imageBase)
	if sum.Failed > 0 {
		log.Warnf("%s: %d symbols could not be registered", mod.path, sum.Failed)
	}

	w := bufio.NewWriter(cmd.stdout)
	if cmd.list {
		for _, sym := range m.Symbols() {
			fmt.Fprintf(w, "%v %08x %s\n", sym.Address, sym.Size, sym.Name)
		}
	}
	for _, query := range args[2:] {
		writeLookup(w, m, query)
	}
	return w.Flush()
}

// writeLookup resolves query as an address. Queries that do not parse as an
// address, or that no symbol covers, are looked up as symbol names, so names that
// happen to be valid hexadecimal still resolve.
func writeLookup(w io.Writer, m *synthsym.Map, query string) {
	addr, err := libpf.ParseAddress(query)
	if err == nil {
		sym, offset, err := m.LookupByAddress(addr)
		if err == nil {
			if offset == 0 {
				fmt.Fprintf(w, "%v %s\n", addr, sym.Name)
			} else {
				fmt.Fprintf(w, "%v %s+0x%x\n", addr, sym.Name, offset)
			}
			return
		}
	}

	sym, err := m.LookupSymbol(query)
	if err != nil {
		fmt.Fprintf(w, "%s ?\n", query)
		return
	}
	fmt.Fprintf(w, "%s %v %08x\n", query, sym.Address, sym.Size)
}

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

	"github.com/addsym/addsym/source"
	"github.com/addsym/addsym/symtab"
)

type dumpCmd struct {
	root *rootArgs

	all    bool
	stdout io.Writer
}

func newDumpCmd(root *rootArgs) *ffcli.Command {
	args := &dumpCmd{root: root, stdout: os.Stdout}

	set := flag.NewFlagSet("dump", flag.ContinueOnError)
	set.BoolVar(&args.all, "all", false, allHelp)

	return &ffcli.Command{
		Name:       "dump",
		Exec:       args.exec,
		ShortUsage: "dump [flags] <export>",
		ShortHelp:  "Print the module relative symbol table of an export or snapshot",
		FlagSet:    set,
		Options:    subcommandOptions(root),
	}
}

func (cmd *dumpCmd) exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one export")
	}

	tab, err := loadTable(ctx, &source.Opener{}, args[0], nil)
	if err != nil {
		return err
	}
	log.Debugf("Export base 0x%x, %d entries, fingerprint %016x",
		tab.moduleBase, tab.table.Len(), tab.table.Fingerprint())

	w := bufio.NewWriter(cmd.stdout)
	writeTable(w, tab.table, cmd.all)
	return w.Flush()
}

// writeTable prints one entry per line: offset, kind, size and name.
func writeTable(w io.Writer, tab *symtab.Table, all bool) {
	tab.Visit(func(e symtab.Entry) bool {
		if e.Name != "" || all {
			fmt.Fprintf(w, "%08x %-8s %08x %s\n", e.Offset, e.Kind, e.Size, e.Name)
		}
		return true
	})
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/addsym/addsym/source"
	"github.com/addsym/addsym/synthsym"
)

type loadCmd struct {
	root *rootArgs

	output   string
	demangle bool
	quiet    bool

	// stderr receives progress dots.
	stderr io.Writer
}

func newLoadCmd(root *rootArgs) *ffcli.Command {
	args := &loadCmd{root: root, stderr: os.Stderr}

	set := flag.NewFlagSet("load", flag.ContinueOnError)
	set.StringVar(&args.output, "o", "", outputHelp)
	set.BoolVar(&args.demangle, "demangle", false, demangleHelp)
	set.BoolVar(&args.quiet, "quiet", false, quietHelp)

	return &ffcli.Command{
		Name:       "load",
		Exec:       args.exec,
		ShortUsage: "load [flags] <image-base> <export> [<image-base> <export>...]",
		ShortHelp:  "Parse exports and register their symbols at the given image bases",
		LongHelp: "The image base is the hexadecimal address the module is loaded at. " +
			"Exports are Ghidra XML files, optionally gzip or zstd compressed, local or " +
			"s3://bucket/key, or snapshots written by the snapshot command.",
		FlagSet: set,
		Options: subcommandOptions(root),
	}
}

func (cmd *loadCmd) exec(ctx context.Context, args []string) error {
	mods, err := parseModuleArgs(args)
	if err != nil {
		return err
	}

	// Each export is an independent pass with its own state and table.
	tables := make([]*loadedTable, len(mods))
	opener := &source.Opener{}
	progress := progressDots(cmd.stderr, cmd.quiet)

	if !cmd.quiet {
		fmt.Fprint(cmd.stderr, "Parsing symbols")
	}
	g, gctx := errgroup.WithContext(ctx)
	for i, mod := range mods {
		i, mod := i, mod
		g.Go(func() error {
			tab, err := loadTable(gctx, opener, mod.path, progress)
			if err != nil {
				return err
			}
			tables[i] = tab
			return nil
		})
	}
	err = g.Wait()
	if !cmd.quiet {
		fmt.Fprintln(cmd.stderr)
	}
	if err != nil {
		return err
	}

	out, err := createOutput(cmd.output)
	if err != nil {
		return err
	}
	defer out.Close()

	w := synthsym.NewWriter(out)
	var opts []synthsym.Option
	if cmd.demangle {
		opts = append(opts, synthsym.WithDemangle())
	}
	if progress != nil {
		opts = append(opts, synthsym.WithProgress(defaultProgressInterval, progress))
	}

	for i, mod := range mods {
		tab := tables[i]
		log.Infof("%s: %d symbols parsed (export base 0x%x, %d entries)",
			mod.path, tab.table.Named(), tab.moduleBase, tab.table.Len())

		if !cmd.quiet {
			fmt.Fprint(cmd.stderr, "Registering symbols")
		}
		sum := synthsym.Register(tab.table, mod.imageBase, w, opts...)
		if !cmd.quiet {
			fmt.Fprintln(cmd.stderr)
		}
		log.Infof("%s: %d symbols registered at %v", mod.path, sum.Registered, mod.imageBase)
		if sum.Failed > 0 {
			log.Warnf("%s: %d symbols could not be registered", mod.path, sum.Failed)
		}
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("failed to write symbols: %w", err)
	}
	return out.Close()
}

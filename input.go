// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/addsym/addsym/ghidraxml"
	"github.com/addsym/addsym/libpf"
	"github.com/addsym/addsym/snapshot"
	"github.com/addsym/addsym/source"
	"github.com/addsym/addsym/symtab"
)

// module is an export to be registered at a load address.
type module struct {
	imageBase libpf.Address
	path      string
}

// parseModuleArgs parses <image-base> <export> argument pairs.
func parseModuleArgs(args []string) ([]module, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errors.New("expected <image-base> <export> argument pairs")
	}
	mods := make([]module, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		base, err := libpf.ParseAddress(args[i])
		if err != nil {
			return nil, fmt.Errorf("invalid image base for %s: %w", args[i+1], err)
		}
		mods = append(mods, module{imageBase: base, path: args[i+1]})
	}
	return mods, nil
}

// loadedTable is the symbol table of one export.
type loadedTable struct {
	table       *symtab.Table
	moduleBase  uint64
	interrupted bool
}

// progressDots prints a dot to w for every progress callback. The returned
// function may be called from several parsing goroutines.
func progressDots(w io.Writer, quiet bool) func(int) {
	if quiet {
		return nil
	}
	var mu sync.Mutex
	return func(int) {
		mu.Lock()
		fmt.Fprint(w, ".")
		mu.Unlock()
	}
}

// loadTable reads the table from a Ghidra XML export or from a snapshot.
func loadTable(ctx context.Context, opener *source.Opener, name string,
	progress func(int)) (*loadedTable, error) {
	r, err := opener.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// Short files return less than requested along with an error; IsSnapshot
	// rejects those.
	prefix, _ := r.Peek(len(snapshot.Magic))
	if snapshot.IsSnapshot(prefix) {
		snap, err := snapshot.Load(r)
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot %s: %w", name, err)
		}
		log.Debugf("Loaded snapshot %s with %d entries", name, snap.Table.Len())
		return &loadedTable{table: snap.Table, moduleBase: snap.ModuleBase}, nil
	}

	var opts []ghidraxml.Option
	if progress != nil {
		opts = append(opts, ghidraxml.WithProgress(defaultProgressInterval, progress))
	}
	res, err := ghidraxml.Parse(ctx, r, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if res.Interrupted {
		log.Warnf("Parsing %s interrupted after %d lines, keeping %d entries found so far",
			name, res.Lines, res.Table.Len())
	}
	return &loadedTable{
		table:       res.Table,
		moduleBase:  res.State.ModuleBase,
		interrupted: res.Interrupted,
	}, nil
}

// createOutput opens path for writing, or returns standard output for an empty path.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

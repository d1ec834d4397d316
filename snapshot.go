// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"github.com/addsym/addsym/snapshot"
	"github.com/addsym/addsym/source"
)

type snapshotCmd struct {
	root *rootArgs

	output string
}

func newSnapshotCmd(root *rootArgs) *ffcli.Command {
	args := &snapshotCmd{root: root}

	set := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	set.StringVar(&args.output, "o", "", snapshotHelp)

	return &ffcli.Command{
		Name:       "snapshot",
		Exec:       args.exec,
		ShortUsage: "snapshot -o <file> <export>",
		ShortHelp:  "Parse an export once and save the symbol table for faster loading",
		FlagSet:    set,
		Options:    subcommandOptions(root),
	}
}

func (cmd *snapshotCmd) exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one export")
	}
	if cmd.output == "" {
		return errors.New("missing required argument `o`")
	}

	tab, err := loadTable(ctx, &source.Opener{}, args[0], nil)
	if err != nil {
		return err
	}
	if tab.interrupted {
		return errors.New("refusing to save a snapshot of an interrupted parse")
	}

	// Write to a temporary file first so that an existing snapshot is only
	// replaced by a complete one.
	f, err := os.CreateTemp(filepath.Dir(cmd.output), "tmp.")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(f.Name())

	err = snapshot.Save(f, &snapshot.Snapshot{ModuleBase: tab.moduleBase, Table: tab.table})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err = os.Rename(f.Name(), cmd.output); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	log.Infof("Saved %d entries (%d named) to %s", tab.table.Len(), tab.table.Named(), cmd.output)
	return nil
}

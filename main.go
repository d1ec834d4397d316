// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// addsym turns Ghidra XML exports into synthetic debugger symbols. It rebuilds the
// module relative symbol table of the export and registers every named symbol at
// the address the module is loaded at in the debugged process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package returns flag.ErrHelp or a parse error, reported as exit code 2
	exitParseError exitCode = 2
)

func newRootCmd(args *rootArgs) *ffcli.Command {
	return &ffcli.Command{
		Name:       "addsym",
		ShortUsage: "addsym [-v] [-config file] <subcommand> [flags]",
		ShortHelp:  "Tool for turning Ghidra XML exports into debugger symbols",
		FlagSet:    newRootFlagSet(args),
		Options:    rootOptions(),
		Subcommands: []*ffcli.Command{
			newLoadCmd(args),
			newDumpCmd(args),
			newSnapshotCmd(args),
			newLookupCmd(args),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func main() {
	os.Exit(int(mainWithExitCode(os.Args[1:])))
}

func mainWithExitCode(argv []string) exitCode {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	var args rootArgs
	root := newRootCmd(&args)
	if err := root.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		fmt.Fprintf(os.Stderr, "Failure to parse arguments: %v\n", err)
		return exitParseError
	}

	if args.verbose {
		log.SetLevel(log.DebugLevel)
	}

	// Interrupting stops parsing at the next line; the symbols found so far are
	// still registered.
	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
			return exitParseError
		}
		log.Errorf("%v", err)
		return exitFailure
	}
	return exitSuccess
}

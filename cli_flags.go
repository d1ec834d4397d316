// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"

	"github.com/peterbourgon/ff/v3"
)

const (
	// Default values for CLI flags
	defaultProgressInterval = 500
	defaultLookupCacheSize  = 4096

	envVarPrefix = "ADDSYM"
)

// Help strings for command line arguments
var (
	verboseModeHelp = "Enable verbose logging."
	configFileHelp  = "Path to a configuration file with one 'flag value' pair per line. " +
		"Flags can also be given as " + envVarPrefix + "_<FLAG> environment variables."
	quietHelp    = "Do not print progress dots while parsing and registering."
	outputHelp   = "Write the symbol map to this file instead of standard output."
	demangleHelp = "Register demangled names for C++ and Rust symbols."
	allHelp      = "Also list entries without a name. These are never registered."
	snapshotHelp = "Path of the snapshot file to write."
	cacheHelp    = "Number of address lookups to cache."
	listHelp     = "List every registered symbol before resolving queries."
)

type rootArgs struct {
	verbose    bool
	configFile string
}

// rootOptions lets environment variables and the -config file provide root flags.
func rootOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// The config file is shared with the subcommands and holds their flags too.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}

// subcommandOptions lets environment variables and the config file named by the
// root -config flag provide subcommand flags. The root flags are parsed first.
func subcommandOptions(root *rootArgs) []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileVia(&root.configFile),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}

func newRootFlagSet(args *rootArgs) *flag.FlagSet {
	fs := flag.NewFlagSet("addsym", flag.ContinueOnError)

	fs.StringVar(&args.configFile, "config", "", configFileHelp)
	fs.BoolVar(&args.verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.verbose, "verbose", false, verboseModeHelp)
	return fs
}

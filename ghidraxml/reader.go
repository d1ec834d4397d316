// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ghidraxml

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/addsym/addsym/symtab"
)

// readBufferSize is the initial line buffer size. Lines longer than this are still
// read completely.
const readBufferSize = 64 * 1024

// Result is the outcome of one pass over an export.
type Result struct {
	// Table holds the symbols found. It is complete unless Interrupted is set.
	Table *symtab.Table
	// State is the parser state after the last processed line.
	State State
	// Lines is the number of lines processed.
	Lines int
	// Interrupted is set when the pass was cancelled before the end of the input.
	Interrupted bool
}

type options struct {
	progressEvery int
	progress      func(lines int)
}

// Option configures Parse.
type Option func(*options)

// WithProgress calls fn after every 'every' processed lines.
func WithProgress(every int, fn func(lines int)) Option {
	return func(o *options) {
		o.progressEvery = every
		o.progress = fn
	}
}

// Parse reads the export from r line by line and builds the symbol table.
//
// The context is checked before every line. If it is cancelled the pass stops and
// the symbols found so far are returned with Result.Interrupted set and a nil error.
// An error is only returned if reading from r fails; the partial result is returned
// along with it.
func Parse(ctx context.Context, r io.Reader, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{Table: symtab.New()}
	br := bufio.NewReaderSize(r, readBufferSize)
	for {
		if ctx.Err() != nil {
			res.Interrupted = true
			log.Debugf("Parsing interrupted after %d lines", res.Lines)
			break
		}

		line, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return res, fmt.Errorf("failed to read line %d: %w", res.Lines+1, err)
		}

		ParseLine(line, &res.State, res.Table)
		res.Lines++
		if o.progress != nil && o.progressEvery > 0 && res.Lines%o.progressEvery == 0 {
			o.progress(res.Lines)
		}
	}

	log.Debugf("Processed %d lines, module base 0x%x, %d entries (%d named)",
		res.Lines, res.State.ModuleBase, res.Table.Len(), res.Table.Named())
	return res, nil
}

// readLine returns the next line without its line terminator. A final line without
// terminator is returned as well; io.EOF is only returned once no data is left.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || line == "" {
			return "", err
		}
	}
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n], nil
}

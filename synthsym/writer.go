// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package synthsym

import (
	"bufio"
	"fmt"
	"io"

	"github.com/addsym/addsym/libpf"
)

// Writer is a Registrar that writes one "<address> <size> <name>" line per symbol,
// in hexadecimal, for debuggers and tools that import plain symbol maps.
type Writer struct {
	w *bufio.Writer
}

var _ Registrar = &Writer{}

// NewWriter creates a Writer. Flush must be called once all symbols are added.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) AddSyntheticSymbol(addr libpf.Address, size uint32, name string) error {
	_, err := fmt.Fprintf(w.w, "%016x %08x %s\n", uint64(addr), size, name)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot stores a parsed symbol table so that large exports do not need
// to be parsed again for every debugging session.
//
// # File format
//
// >>> magic: [8]char              # "ADDSYMS1"
// >>> checksum: u64 LE            # xxh3 of the compressed body
// >>> body: zstd(msgpack(payload))
package snapshot // import "github.com/addsym/addsym/snapshot"

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"github.com/addsym/addsym/symtab"
)

// Magic identifies snapshot files.
const Magic = "ADDSYMS1"

// version of the msgpack payload layout.
const version = 1

const headerSize = len(Magic) + 8

var (
	// ErrBadMagic is returned when the input is not a snapshot.
	ErrBadMagic = errors.New("not a symbol table snapshot (bad magic)")
	// ErrChecksum is returned when the snapshot body is corrupted.
	ErrChecksum = errors.New("snapshot checksum mismatch")
)

// Snapshot is a symbol table together with the base the export was made at.
type Snapshot struct {
	ModuleBase uint64
	Table      *symtab.Table
}

type entry struct {
	Kind   uint8  `msgpack:"k"`
	Name   string `msgpack:"n,omitempty"`
	Offset uint64 `msgpack:"o"`
	Size   uint32 `msgpack:"s"`
}

type payload struct {
	Version    uint32  `msgpack:"version"`
	ModuleBase uint64  `msgpack:"module_base"`
	Entries    []entry `msgpack:"entries"`
}

// Save writes s to w.
func Save(w io.Writer, s *Snapshot) error {
	p := payload{
		Version:    version,
		ModuleBase: s.ModuleBase,
		Entries:    make([]entry, 0, s.Table.Len()),
	}
	for _, e := range s.Table.Entries() {
		p.Entries = append(p.Entries, entry{
			Kind:   uint8(e.Kind),
			Name:   e.Name,
			Offset: e.Offset,
			Size:   e.Size,
		})
	}

	var body bytes.Buffer
	zw, err := zstd.NewWriter(&body, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err = msgpack.NewEncoder(zw).Encode(&p); err != nil {
		_ = zw.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}

	var hdr [headerSize]byte
	copy(hdr[:], Magic)
	binary.LittleEndian.PutUint64(hdr[len(Magic):], xxh3.Hash(body.Bytes()))
	if _, err = w.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	if _, err = w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// IsSnapshot reports whether the data starting with prefix is a snapshot.
func IsSnapshot(prefix []byte) bool {
	return bytes.HasPrefix(prefix, []byte(Magic))
}

// Load reads a snapshot written by Save.
func Load(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) < headerSize || !IsSnapshot(data) {
		return nil, ErrBadMagic
	}
	body := data[headerSize:]
	if xxh3.Hash(body) != binary.LittleEndian.Uint64(data[len(Magic):]) {
		return nil, ErrChecksum
	}

	zr, err := zstd.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer zr.Close()

	var p payload
	if err = msgpack.NewDecoder(zr).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if p.Version != version {
		return nil, fmt.Errorf("unsupported snapshot version %d", p.Version)
	}

	tab := symtab.New()
	for _, e := range p.Entries {
		tab.Set(symtab.Entry{
			Kind:   symtab.Kind(e.Kind),
			Name:   e.Name,
			Offset: e.Offset,
			Size:   e.Size,
		})
	}
	return &Snapshot{ModuleBase: p.ModuleBase, Table: tab}, nil
}

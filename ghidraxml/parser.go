// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package ghidraxml rebuilds a module relative symbol table from a Ghidra XML
// program export.
//
// The export is not parsed as XML. Each line is matched against the literal tag
// and attribute shapes Ghidra writes. Reordered attributes, escaped characters and
// tags spanning several lines are not supported. A typical export looks like:
//
//	<PROGRAM NAME="test.exe" EXE_FORMAT="Portable Executable (PE)" IMAGE_BASE="00400000">
//	  <DATA>
//	    <DEFINED_DATA ADDRESS="004fee68" DATATYPE="string" SIZE="0x18" />
//	  </DATA>
//	  <SYMBOL_TABLE>
//	    <SYMBOL ADDRESS="004fee68" NAME="g_UiPool" NAMESPACE="" TYPE="global" PRIMARY="y" />
//	  </SYMBOL_TABLE>
//	  <FUNCTIONS>
//	    <FUNCTION ENTRY_POINT="00401005" NAME="gets_s" LIBRARY_FUNCTION="n">
//	      <ADDRESS_RANGE START="00401005" END="00401009" />
//	    </FUNCTION>
//	  </FUNCTIONS>
//	</PROGRAM>
package ghidraxml

import (
	"github.com/addsym/addsym/symtab"
)

// Tag and attribute anchors, as written by Ghidra's XML exporter.
const (
	programTag = `<PROGRAM NAME="`
	imageBase  = `IMAGE_BASE="`

	functionsOpen  = `<FUNCTIONS`
	functionsClose = `</FUNCTIONS>`
	functionTag    = `<FUNCTION ENTRY_POINT="`
	functionName   = `" NAME="`
	rangeTag       = `<ADDRESS_RANGE START="`
	rangeEnd       = `" END="`

	dataOpen  = `<DATA`
	dataClose = `</DATA>`
	dataTag   = `<DEFINED_DATA ADDRESS="`
	dataSize  = `" SIZE="0x`

	symbolsOpen     = `<SYMBOL_TABLE`
	symbolsClose    = `</SYMBOL_TABLE>`
	symbolTag       = `<SYMBOL ADDRESS="`
	symbolName      = ` NAME="`
	symbolNamespace = ` NAMESPACE=""`
	symbolGlobal    = ` TYPE="global"`
	symbolPrimary   = ` PRIMARY="y"`
)

// State is the parser state carried from one line to the next during a single
// pass over an export. The zero value is the state at the start of a pass.
type State struct {
	InFunctions   bool
	InData        bool
	InSymbolTable bool

	// ModuleBase is the image base the export was made at. Zero means it has not
	// been seen yet. Once set it does not change for the rest of the pass.
	ModuleBase uint64
}

// opens reports whether the remainder after a section tag name opens the section,
// i.e. the tag is not self-closing.
func opens(rest string) bool {
	return rest == "" || rest[0] != '/'
}

// ParseLine applies one export line to st and tab. At most one rule fires per
// line and lines that match no rule are ignored. ParseLine never fails: values
// that can not be parsed are taken as zero.
func ParseLine(line string, st *State, tab *symtab.Table) {
	if i := indexNUL(line); i >= 0 {
		line = line[:i]
	}

	if st.ModuleBase == 0 {
		if s, ok := hasPrefix(line, programTag); ok {
			if s, ok = skipTo(s, imageBase); ok {
				st.ModuleBase = parseHex(s)
			}
			return
		}
	}

	if s, ok := hasPrefix(line, functionsOpen); ok {
		st.InFunctions = opens(s)
		return
	}
	if s, ok := hasPrefix(line, dataOpen); ok {
		st.InData = opens(s)
		return
	}
	if s, ok := hasPrefix(line, symbolsOpen); ok {
		st.InSymbolTable = opens(s)
		return
	}
	if st.InFunctions {
		if _, ok := hasPrefix(line, functionsClose); ok {
			st.InFunctions = false
			return
		}
	}
	if st.InData {
		if _, ok := hasPrefix(line, dataClose); ok {
			st.InData = false
			return
		}
	}
	if st.InSymbolTable {
		if _, ok := hasPrefix(line, symbolsClose); ok {
			st.InSymbolTable = false
			return
		}
	}

	if st.InFunctions {
		if s, ok := hasPrefix(line, functionTag); ok {
			parseFunction(s, st, tab)
			return
		}
		if s, ok := hasPrefix(line, rangeTag); ok {
			parseAddressRange(s, st, tab)
			return
		}
	}
	if st.InData {
		if s, ok := hasPrefix(line, dataTag); ok {
			parseDefinedData(s, st, tab)
			return
		}
	}
	if st.InSymbolTable {
		if s, ok := hasPrefix(line, symbolTag); ok {
			parseSymbol(s, st, tab)
		}
	}
}

// parseFunction handles
//
//	<FUNCTION ENTRY_POINT="00401005" NAME="gets_s" LIBRARY_FUNCTION="n">
//
// A function replaces whatever entry is at its offset.
func parseFunction(s string, st *State, tab *symtab.Table) {
	offset := parseHex(s) - st.ModuleBase
	s, ok := skipTo(s, functionName)
	if !ok {
		return
	}
	name, _ := quoted(s)
	tab.Set(symtab.Entry{
		Kind:   symtab.Function,
		Name:   name,
		Offset: offset,
		Size:   symtab.DefaultFunctionSize,
	})
}

// parseAddressRange handles
//
//	<ADDRESS_RANGE START="00401005" END="00401009" />
//
// It only sizes a function that was declared earlier at the same offset.
func parseAddressRange(s string, st *State, tab *symtab.Table) {
	start := parseHex(s)
	s, ok := skipTo(s, rangeEnd)
	if !ok {
		return
	}
	end := parseHex(s)
	if e, ok := tab.Get(start - st.ModuleBase); ok {
		e.Size = uint32(end - start)
	}
}

// parseDefinedData handles
//
//	<DEFINED_DATA ADDRESS="004fee68" DATATYPE="string" DATATYPE_NAMESPACE="/" SIZE="0x18" />
//
// Data replaces whatever entry is at its offset, including a function, and starts
// out without a name.
func parseDefinedData(s string, st *State, tab *symtab.Table) {
	offset := parseHex(s) - st.ModuleBase
	s, ok := skipTo(s, dataSize)
	if !ok {
		return
	}
	tab.Set(symtab.Entry{
		Kind:   symtab.Data,
		Offset: offset,
		Size:   parseHex32(s),
	})
}

// parseSymbol handles
//
//	<SYMBOL ADDRESS="004fee68" NAME="g_UiPool" NAMESPACE="" TYPE="global" SOURCE_TYPE="USER_DEFINED" PRIMARY="y" />
//
// Symbols name entries that already exist. Only primary global symbols of the root
// namespace are used, and they replace any existing name, a function's included.
func parseSymbol(s string, st *State, tab *symtab.Table) {
	e, ok := tab.Get(parseHex(s) - st.ModuleBase)
	if !ok {
		return
	}
	if s, ok = skipTo(s, symbolName); !ok {
		return
	}
	name, s := quoted(s)
	for _, attr := range [...]string{symbolNamespace, symbolGlobal, symbolPrimary} {
		if s, ok = skipTo(s, attr); !ok {
			return
		}
	}
	e.Name = name
}

func indexNUL(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return i
		}
	}
	return -1
}

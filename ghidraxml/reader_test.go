// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ghidraxml

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addsym/addsym/symtab"
)

func TestParseExport(t *testing.T) {
	f, err := os.Open("testdata/test.exe.xml")
	require.NoError(t, err)
	defer f.Close()

	res, err := Parse(context.Background(), f)
	require.NoError(t, err)
	assert.False(t, res.Interrupted)
	assert.Equal(t, 46, res.Lines)
	assert.Equal(t, uint64(0x400000), res.State.ModuleBase)

	assert.Equal(t, []symtab.Entry{
		{Kind: symtab.Function, Name: "gets_s", Offset: 0x1005, Size: 4},
		{Kind: symtab.Function, Name: "_main", Offset: 0x1010, Size: 0x7f},
		{Kind: symtab.Function, Name: "_ZN4core3fmt5write17h1234567890abcdefE",
			Offset: 0x1100, Size: 0x80},
		{Kind: symtab.Data, Name: "g_UiPool", Offset: 0xfee68, Size: 0x18},
		{Kind: symtab.Data, Name: "s_Hello_004fee80", Offset: 0xfee80, Size: 0xc},
		// Symbol in a non root namespace, left unnamed.
		{Kind: symtab.Data, Name: "", Offset: 0xfee90, Size: 0x4},
	}, res.Table.Entries())
	assert.Equal(t, 5, res.Table.Named())
}

func TestParseLineEndings(t *testing.T) {
	input := "<PROGRAM NAME=\"a.exe\" IMAGE_BASE=\"00400000\">\r\n" +
		"<FUNCTIONS>\r\n" +
		"<FUNCTION ENTRY_POINT=\"00401000\" NAME=\"crlf\">\r\n" +
		"<FUNCTION ENTRY_POINT=\"00401010\" NAME=\"unterminated\">"

	res, err := Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Lines)

	e, ok := res.Table.Get(0x1000)
	require.True(t, ok)
	assert.Equal(t, "crlf", e.Name)

	e, ok = res.Table.Get(0x1010)
	require.True(t, ok)
	assert.Equal(t, "unterminated", e.Name)
}

func TestParseLongLine(t *testing.T) {
	name := strings.Repeat("x", 3*readBufferSize)
	input := "<PROGRAM NAME=\"a.exe\" IMAGE_BASE=\"00400000\">\n<FUNCTIONS>\n" +
		"<FUNCTION ENTRY_POINT=\"00401000\" NAME=\"" + name + "\">\n"

	res, err := Parse(context.Background(), iotest.HalfReader(strings.NewReader(input)))
	require.NoError(t, err)

	e, ok := res.Table.Get(0x1000)
	require.True(t, ok)
	assert.Equal(t, name, e.Name)
}

func TestParseProgress(t *testing.T) {
	input := strings.Repeat("<SOMETHING />\n", 1234)

	var calls []int
	res, err := Parse(context.Background(), strings.NewReader(input),
		WithProgress(500, func(lines int) { calls = append(calls, lines) }))
	require.NoError(t, err)
	assert.Equal(t, 1234, res.Lines)
	assert.Equal(t, []int{500, 1000}, calls)
}

func TestParseInterrupted(t *testing.T) {
	input := "<PROGRAM NAME=\"a.exe\" IMAGE_BASE=\"00400000\">\n" +
		"<FUNCTIONS>\n" +
		"<FUNCTION ENTRY_POINT=\"00401000\" NAME=\"first\">\n" +
		"<FUNCTION ENTRY_POINT=\"00401010\" NAME=\"second\">\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the third line is processed, the fourth line must not be seen.
	res, err := Parse(ctx, strings.NewReader(input), WithProgress(3, func(int) { cancel() }))
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, 1, res.Table.Len())

	_, ok := res.Table.Get(0x1000)
	assert.True(t, ok)
}

func TestParseCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Parse(ctx, strings.NewReader("<FUNCTIONS>\n"))
	require.NoError(t, err)
	assert.True(t, res.Interrupted)
	assert.Equal(t, 0, res.Lines)
	assert.Equal(t, State{}, res.State)
}

func TestParseReadError(t *testing.T) {
	errBroken := errors.New("broken pipe")
	r := io.MultiReader(
		strings.NewReader("<FUNCTIONS>\n<FUNCTION ENTRY_POINT=\"00001000\" NAME=\"f\">\n"),
		iotest.ErrReader(errBroken))

	res, err := Parse(context.Background(), r)
	require.ErrorIs(t, err, errBroken)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Lines)
	assert.Equal(t, 1, res.Table.Len())
}

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAlignsWideCells(t *testing.T) {
	tb := newTable(0, "ID", "CONVERSATION", "DETAIL")
	tb.add("1", "42", "ok")
	tb.add("12", "Привет", "✅ done")

	var buf bytes.Buffer
	require.NoError(t, tb.render(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	col := func(line, cell string) int {
		return runewidth.StringWidth(line[:strings.Index(line, cell)])
	}
	assert.Equal(t, col(lines[0], "DETAIL"), col(lines[1], "ok"))
	assert.Equal(t, col(lines[0], "DETAIL"), col(lines[2], "✅"))
}

func TestTableTruncates(t *testing.T) {
	tb := newTable(10, "ERROR")
	tb.add("malformed task: input is required")

	var buf bytes.Buffer
	require.NoError(t, tb.render(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "malformed…", lines[1])
}

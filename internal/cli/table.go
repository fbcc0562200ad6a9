package cli

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table writes left-aligned columns measured in terminal cells, so
// Cyrillic and emoji cells line up
type table struct {
	header []string
	rows   [][]string
	max    int // Cell width cap; longer cells are truncated with "…"
}

func newTable(max int, header ...string) *table {
	return &table{header: header, max: max}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if t.max > 0 && runewidth.StringWidth(s) > t.max {
		return runewidth.Truncate(s, t.max, "…")
	}
	return s
}

func (t *table) render(w io.Writer) error {
	all := append([][]string{t.header}, t.rows...)
	widths := make([]int, len(t.header))
	for _, row := range all {
		for i := range widths {
			if i < len(row) {
				if n := runewidth.StringWidth(t.cell(row[i])); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	var b strings.Builder
	for _, row := range all {
		for i := range widths {
			var c string
			if i < len(row) {
				c = t.cell(row[i])
			}
			if i == len(widths)-1 {
				b.WriteString(c)
				break
			}
			b.WriteString(runewidth.FillRight(c, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

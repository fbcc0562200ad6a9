package dispatch

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// PlainText strips markdown emphasis, code and link syntax from s and keeps
// the visible text. Blocks are separated by a blank line; line breaks
// inside a block are kept.
func PlainText(s string) string {
	source := []byte(s)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var blocks []string
	var cur strings.Builder
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			blocks = append(blocks, t)
		}
		cur.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := n.(type) {
		case *ast.Text:
			if entering {
				cur.Write(v.Segment.Value(source))
				if v.SoftLineBreak() || v.HardLineBreak() {
					cur.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				cur.Write(v.Value)
			}
		case *ast.AutoLink:
			if entering {
				cur.Write(v.URL(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					cur.Write(seg.Value(source))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			if !entering {
				flush()
			}
		case *ast.ListItem:
			if entering {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}

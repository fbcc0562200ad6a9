package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skippedElements never contribute readable text
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Svg:      true,
	atom.Button:   true,
	atom.Template: true,
}

// blockElements end a run of inline text
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.Blockquote: true, atom.Section: true, atom.Tr: true, atom.Figcaption: true,
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	stylePattern  = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

// ReadableText extracts the main text of an HTML document. It prefers the
// largest <article>, then <main>, then <body>, skipping navigation and
// script-like elements and collapsing whitespace.
func ReadableText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return stripTags(htmlContent)
	}

	root := bestContainer(doc)
	if root == nil {
		root = doc
	}

	text := collapse(visibleText(root))
	if text == "" && root != doc {
		text = collapse(visibleText(doc))
	}
	return text
}

// bestContainer picks the article, main or body element to read from
func bestContainer(doc *html.Node) *html.Node {
	var articles, mains []*html.Node
	var body *html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Article:
				articles = append(articles, n)
			case atom.Main:
				mains = append(mains, n)
			case atom.Body:
				body = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if best := longest(articles); best != nil {
		return best
	}
	if best := longest(mains); best != nil {
		return best
	}
	return body
}

// longest returns the node with the most visible text, ignoring empty ones
func longest(nodes []*html.Node) *html.Node {
	var best *html.Node
	bestLen := 0
	for _, n := range nodes {
		if l := len(collapse(visibleText(n))); l > bestLen {
			best, bestLen = n, l
		}
	}
	return best
}

// visibleText extracts text nodes, skipping non-content elements
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.DataAtom] {
				return
			}
			if hidden(n) {
				return
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return buf.String()
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			s := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(s, "display:none") {
				return true
			}
		}
	}
	return false
}

// stripTags is the regex fallback for markup the parser rejects
func stripTags(s string) string {
	s = scriptPattern.ReplaceAllString(s, " ")
	s = stylePattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	return collapse(html.UnescapeString(s))
}

// collapse joins whitespace runs into single spaces
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package htmlpage

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// paragraphMark stands for a blank line while the text is being assembled.
const paragraphMark = "\x00"

var spaceRun = regexp.MustCompile(`\s+`)

var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

var blocks = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Fieldset: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tbody: true,
	atom.Thead: true, atom.Tfoot: true, atom.Tr: true, atom.Ul: true, atom.Caption: true,
}

var paragraphs = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true,
}

// InnerText approximates the browser's innerText for n: whitespace inside
// text collapses, block elements start new lines, paragraphs and headings are
// separated by a blank line, and script/style content is dropped.
func InnerText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			switch {
			case n.DataAtom == atom.Br:
				b.WriteString("\n")
				return
			case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
				b.WriteString(" ")
			case paragraphs[n.DataAtom]:
				b.WriteString("\n" + paragraphMark + "\n")
				defer b.WriteString("\n" + paragraphMark + "\n")
			case blocks[n.DataAtom]:
				b.WriteString("\n")
				defer b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	var out []string
	blank := false
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case paragraphMark:
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

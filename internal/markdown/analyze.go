package markdown

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

const excerptLimit = 200

var tocLevels = map[atom.Atom]int{atom.H2: 2, atom.H3: 3, atom.H4: 4}

// analyze walks sanitized HTML to fill TOC, Title and Excerpt.
func analyze(doc []byte, out *Rendered) error {
	nodes, err := html.ParseFragment(bytes.NewReader(doc), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return err
	}

	for _, n := range nodes {
		walk(n, out)
	}
	return nil
}

func walk(n *html.Node, out *Rendered) {
	if n.Type == html.ElementNode {
		switch {
		case n.DataAtom == atom.H1 && out.Title == "":
			out.Title = textContent(n)
			return
		case tocLevels[n.DataAtom] > 0:
			out.TOC = append(out.TOC, manifest.Heading{
				Level: tocLevels[n.DataAtom],
				ID:    attr(n, "id"),
				Text:  textContent(n),
			})
			return
		case n.DataAtom == atom.P && out.Excerpt == "" && !insideList(n):
			out.Excerpt = truncate(textContent(n), excerptLimit)
			return
		case n.DataAtom == atom.Pre:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, out)
	}
}

func insideList(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Li || p.DataAtom == atom.Blockquote {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit]), " ,.;:")
	// Back off to a word boundary unless that drops more than half the runes.
	if i := strings.LastIndexByte(cut, ' '); i > 0 && utf8.RuneCountInString(cut[:i]) > limit/2 {
		cut = cut[:i]
	}
	return cut + "…"
}

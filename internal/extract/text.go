package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/sitecrawl/internal/model"
)

// invisible elements whose text never reaches the output. noscript is not
// among them; the boilerplate rules remove it where removal applies.
var invisible = map[string]bool{
	"script": true,
	"style":  true,
}

// Text concatenates the visible text nodes under sel. Each text node is
// trimmed, empty ones are dropped, and the rest are joined with a single space.
func Text(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if invisible[n.Data] {
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// Title returns the trimmed text of the first title element, or model.NoTitle.
func Title(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return model.NoTitle
}

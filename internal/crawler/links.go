package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecrawl/internal/frontier"
)

// Harvest returns the normalized in-scope URLs referenced by the anchors
// of doc, in document order and without duplicates. Hrefs are resolved
// against pageURL. Invalid and out-of-scope links are dropped.
func Harvest(doc *goquery.Document, pageURL, allowedHost string) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		u, err := frontier.Normalize(href, pageURL)
		if err != nil {
			return
		}
		if !frontier.IsInScope(u, allowedHost) || seen[u] {
			return
		}

		seen[u] = true
		links = append(links, u)
	})

	return links
}

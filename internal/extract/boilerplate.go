package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultWrapperBoilerplate is removed inside the wrapper container.
var DefaultWrapperBoilerplate = []string{
	"header", "footer", "nav", ".announcement_bar", "script", "style", "noscript",
}

// DefaultFallbackBoilerplate is removed from the body fallback.
var DefaultFallbackBoilerplate = []string{
	"header", "footer", "nav", ".announcement_bar",
	"div.header_mega_menu", "div.header_fixed_manage",
	"noscript", "script", "style",
	".social-links", "#sidebar", ".advertisement", ".cookie-consent",
	".hs-skip-link", `[id^="hs-web-interactives-"]`,
	`iframe[src*="googletagmanager"]`,
}

// DefaultFallbackClassPatterns match generated widget classes removed from the body fallback.
var DefaultFallbackClassPatterns = []string{`^go[0-9]+$`}

// Boilerplate is a set of removal rules: CSS selectors plus regular
// expressions matched against each class token of an element.
type Boilerplate struct {
	selectors []cascadia.Selector
	classes   []*regexp.Regexp
}

// NewBoilerplate compiles selectors and class patterns.
func NewBoilerplate(selectors, classPatterns []string) (*Boilerplate, error) {
	b := &Boilerplate{}
	for _, s := range selectors {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, s, err)
		}
		b.selectors = append(b.selectors, sel)
	}
	for _, p := range classPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		b.classes = append(b.classes, re)
	}
	return b, nil
}

// Remove deletes every descendant of sel matching a rule and returns how
// many elements were removed.
func (b *Boilerplate) Remove(sel *goquery.Selection) int {
	if b == nil {
		return 0
	}

	removed := 0
	for _, m := range b.selectors {
		found := sel.FindMatcher(m)
		removed += found.Length()
		found.Remove()
	}

	if len(b.classes) > 0 {
		found := sel.FindMatcher(classMatcher(b.classes))
		removed += found.Length()
		found.Remove()
	}
	return removed
}

// classMatcher matches elements with at least one class token matching a pattern.
type classMatcher []*regexp.Regexp

func (c classMatcher) Match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, token := range strings.Fields(a.Val) {
			for _, re := range c {
				if re.MatchString(token) {
					return true
				}
			}
		}
	}
	return false
}

// MatchAll returns n and its descendants that match, in document order.
func (c classMatcher) MatchAll(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if c.Match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return out
}

func (c classMatcher) Filter(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if c.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

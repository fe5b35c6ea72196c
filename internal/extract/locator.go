package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Method names reported for the body fallback.
const (
	MethodBodyFallback     = "Fallback (Body Cleanup)"
	MethodDocumentFallback = "Fallback (Full Document - No Body)"
	MethodGenericMain      = "<main> tag"
)

// Region is a located content subtree.
type Region struct {
	// Selection is the located subtree in the original document.
	Selection *goquery.Selection

	// Method names the locator that found it.
	Method string

	// Boilerplate is removed from a copy of Selection before extracting
	// text. nil means the region is taken verbatim.
	Boilerplate *Boilerplate
}

// Locator tries to find the content region of a document.
type Locator interface {
	Locate(doc *goquery.Document) (Region, bool)
}

// SelectorLocator matches the first element in document order that
// satisfies a CSS selector.
type SelectorLocator struct {
	matcher     cascadia.Selector
	method      string
	boilerplate *Boilerplate
}

// NewSelectorLocator compiles selector. method is reported when it matches;
// boilerplate may be nil.
func NewSelectorLocator(selector, method string, boilerplate *Boilerplate) (*SelectorLocator, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, selector, err)
	}
	return &SelectorLocator{matcher: m, method: method, boilerplate: boilerplate}, nil
}

// Locate implements Locator.
func (l *SelectorLocator) Locate(doc *goquery.Document) (Region, bool) {
	sel := doc.FindMatcher(l.matcher).First()
	if sel.Length() == 0 {
		return Region{}, false
	}
	return Region{Selection: sel, Method: l.method, Boilerplate: l.boilerplate}, true
}

// BodyLocator always matches: the body with boilerplate removal, or the
// whole document without removal when there is no body.
type BodyLocator struct {
	boilerplate *Boilerplate
}

// NewBodyLocator creates a BodyLocator.
func NewBodyLocator(boilerplate *Boilerplate) *BodyLocator {
	return &BodyLocator{boilerplate: boilerplate}
}

// Locate implements Locator.
func (l *BodyLocator) Locate(doc *goquery.Document) (Region, bool) {
	if body := doc.Find("body").First(); body.Length() > 0 {
		return Region{Selection: body, Method: MethodBodyFallback, Boilerplate: l.boilerplate}, true
	}
	return Region{Selection: doc.Selection, Method: MethodDocumentFallback}, true
}

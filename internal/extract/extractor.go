package extract

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// Default locator targets.
const (
	DefaultLandmarkID   = "main-content"
	DefaultWrapperClass = "body-container-wrapper"
)

var (
	// ErrInvalidSelector is returned when a configured CSS selector does not compile.
	ErrInvalidSelector = errors.New("invalid CSS selector")

	// ErrInvalidPattern is returned when a configured class pattern does not compile.
	ErrInvalidPattern = errors.New("invalid class pattern")
)

// Page is the outcome of extraction.
type Page struct {
	Text   string
	Title  string
	Method string
}

// Extractor runs the locator chain over a document.
type Extractor struct {
	locators []Locator
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*options)

type options struct {
	landmarkID          string
	wrapperClass        string
	wrapperBoilerplate  []string
	fallbackBoilerplate []string
	fallbackClasses     []string
	locators            []Locator
	logger              *slog.Logger
}

// WithLandmarkID sets the id of the <main> landmark.
func WithLandmarkID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.landmarkID = id
		}
	}
}

// WithWrapperClass sets the class of the wrapper <div>.
func WithWrapperClass(class string) Option {
	return func(o *options) {
		if class != "" {
			o.wrapperClass = class
		}
	}
}

// WithWrapperBoilerplate replaces the selectors removed inside the wrapper.
func WithWrapperBoilerplate(selectors []string) Option {
	return func(o *options) {
		if len(selectors) > 0 {
			o.wrapperBoilerplate = selectors
		}
	}
}

// WithFallbackBoilerplate replaces the selectors removed from the body fallback.
func WithFallbackBoilerplate(selectors []string) Option {
	return func(o *options) {
		if len(selectors) > 0 {
			o.fallbackBoilerplate = selectors
		}
	}
}

// WithFallbackClassPatterns replaces the class patterns removed from the body fallback.
func WithFallbackClassPatterns(patterns []string) Option {
	return func(o *options) {
		if len(patterns) > 0 {
			o.fallbackClasses = patterns
		}
	}
}

// WithLocators replaces the whole chain. The chain should end with a
// locator that always matches.
func WithLocators(locators ...Locator) Option {
	return func(o *options) {
		o.locators = locators
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates an Extractor. Without options it uses the default chain:
// main landmark, generic <main>, wrapper div, body fallback.
func New(opts ...Option) (*Extractor, error) {
	o := &options{
		landmarkID:          DefaultLandmarkID,
		wrapperClass:        DefaultWrapperClass,
		wrapperBoilerplate:  DefaultWrapperBoilerplate,
		fallbackBoilerplate: DefaultFallbackBoilerplate,
		fallbackClasses:     DefaultFallbackClassPatterns,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.locators != nil {
		return &Extractor{locators: o.locators, logger: o.logger}, nil
	}

	locators, err := defaultChain(o)
	if err != nil {
		return nil, err
	}
	return &Extractor{locators: locators, logger: o.logger}, nil
}

func defaultChain(o *options) ([]Locator, error) {
	landmark, err := NewSelectorLocator(
		fmt.Sprintf("main[id=%q]", o.landmarkID), "main#"+o.landmarkID, nil)
	if err != nil {
		return nil, err
	}

	generic, err := NewSelectorLocator("main", MethodGenericMain, nil)
	if err != nil {
		return nil, err
	}

	wrapperBP, err := NewBoilerplate(o.wrapperBoilerplate, nil)
	if err != nil {
		return nil, err
	}
	wrapper, err := NewSelectorLocator(
		fmt.Sprintf("div[class~=%q]", o.wrapperClass), "div."+o.wrapperClass, wrapperBP)
	if err != nil {
		return nil, err
	}

	fallbackBP, err := NewBoilerplate(o.fallbackBoilerplate, o.fallbackClasses)
	if err != nil {
		return nil, err
	}

	return []Locator{landmark, generic, wrapper, NewBodyLocator(fallbackBP)}, nil
}

// Extract runs the chain over doc and returns the text of the first
// located region together with the document title.
func (e *Extractor) Extract(doc *goquery.Document) Page {
	page := Page{Title: Title(doc)}

	for _, l := range e.locators {
		region, ok := l.Locate(doc)
		if !ok {
			continue
		}

		sel := region.Selection
		if region.Boilerplate != nil {
			sel = sel.Clone()
			if n := region.Boilerplate.Remove(sel); n > 0 {
				e.logger.Debug("removed boilerplate", "method", region.Method, "elements", n)
			}
		}

		page.Text = Text(sel)
		page.Method = region.Method
		return page
	}

	// Only reachable with a custom chain that has no catch-all locator.
	page.Text = Text(doc.Selection)
	page.Method = MethodDocumentFallback
	return page
}

package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/sitecrawl/internal/model"
)

func mustDoc(t *testing.T, src string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

func mustExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestExtractor_StrategyOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src        string
		wantMethod string
		wantText   string
	}{
		{
			name: "landmark wins over every other container",
			src: `<html><head><title>T</title></head><body>
				<div class="body-container-wrapper"><p>Wrapper</p></div>
				<main>Generic</main>
				<main id="main-content">Hello World</main>
			</body></html>`,
			wantMethod: "main#main-content",
			wantText:   "Hello World",
		},
		{
			name: "generic main when no landmark",
			src: `<html><body>
				<div class="body-container-wrapper">Wrapper</div>
				<main id="other"><h1>Docs</h1><p>Body text</p></main>
			</body></html>`,
			wantMethod: MethodGenericMain,
			wantText:   "Docs Body text",
		},
		{
			name: "wrapper div when no main",
			src: `<html><body>
				<div class="page body-container-wrapper"><p>Wrapped</p></div>
			</body></html>`,
			wantMethod: "div.body-container-wrapper",
			wantText:   "Wrapped",
		},
		{
			name:       "body fallback",
			src:        `<html><body><p>Only</p><p>paragraphs</p></body></html>`,
			wantMethod: MethodBodyFallback,
			wantText:   "Only paragraphs",
		},
	}

	e := mustExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := e.Extract(mustDoc(t, tt.src))
			if page.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", page.Method, tt.wantMethod)
			}
			if page.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", page.Text, tt.wantText)
			}
		})
	}
}

func TestExtractor_BoilerplateScope(t *testing.T) {
	t.Parallel()

	e := mustExtractor(t)

	t.Run("landmark text is verbatim", func(t *testing.T) {
		t.Parallel()

		page := e.Extract(mustDoc(t, `<html><body>
			<main id="main-content"><nav>Menu</nav><p>Content</p><footer>Foot</footer><noscript>Enable JS</noscript></main>
		</body></html>`))
		if page.Text != "Menu Content Foot Enable JS" {
			t.Errorf("Text = %q", page.Text)
		}
	})

	t.Run("generic main text is verbatim", func(t *testing.T) {
		t.Parallel()

		page := e.Extract(mustDoc(t, `<main><header>Top</header>Content<noscript>No JS</noscript></main>`))
		if page.Text != "Top Content No JS" {
			t.Errorf("Text = %q", page.Text)
		}
	})

	t.Run("wrapper drops its boilerplate", func(t *testing.T) {
		t.Parallel()

		doc := mustDoc(t, `<html><body><div class="body-container-wrapper">
			<header>Header</header>
			<nav>Nav</nav>
			<div class="announcement_bar">Sale!</div>
			<p>Article</p>
			<noscript>Enable JS</noscript>
			<footer>Footer</footer>
		</div></body></html>`)

		page := e.Extract(doc)
		if page.Text != "Article" {
			t.Errorf("Text = %q, want %q", page.Text, "Article")
		}
		if doc.Find("nav").Length() != 1 {
			t.Error("boilerplate removal must not modify the original document")
		}
	})

	t.Run("body fallback drops the larger set", func(t *testing.T) {
		t.Parallel()

		page := e.Extract(mustDoc(t, `<html><body>
			<header>Header</header>
			<div class="header_mega_menu">Mega</div>
			<div id="sidebar">Side</div>
			<div class="advertisement">Ad</div>
			<div class="cookie-consent">Cookies</div>
			<a class="hs-skip-link">Skip</a>
			<div id="hs-web-interactives-top-anchor">Popup</div>
			<div class="go1234 widget">Widget</div>
			<iframe src="https://www.googletagmanager.com/ns.html">GTM</iframe>
			<script>var x = 1;</script>
			<noscript>Enable JS</noscript>
			<p>Kept</p>
			<div class="gopher">Also kept</div>
			<footer>Footer</footer>
		</body></html>`))

		if page.Method != MethodBodyFallback {
			t.Errorf("Method = %q", page.Method)
		}
		if page.Text != "Kept Also kept" {
			t.Errorf("Text = %q, want %q", page.Text, "Kept Also kept")
		}
	})
}

func TestExtractor_NoBody(t *testing.T) {
	t.Parallel()

	root := &html.Node{Type: html.DocumentNode}
	div := &html.Node{Type: html.ElementNode, Data: "div"}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: " Raw text "})
	root.AppendChild(div)

	page := mustExtractor(t).Extract(goquery.NewDocumentFromNode(root))
	if page.Method != MethodDocumentFallback {
		t.Errorf("Method = %q, want %q", page.Method, MethodDocumentFallback)
	}
	if page.Text != "Raw text" {
		t.Errorf("Text = %q", page.Text)
	}
	if page.Title != model.NoTitle {
		t.Errorf("Title = %q", page.Title)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "trimmed title", src: `<title>  Pricing  </title>`, want: "Pricing"},
		{name: "missing title", src: `<p>x</p>`, want: model.NoTitle},
		{name: "blank title", src: `<title>   </title>`, want: model.NoTitle},
		{name: "first title wins", src: `<title>A</title><svg><title>B</title></svg>`, want: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Title(mustDoc(t, tt.src)); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<body><p> Hello
		</p><p>Wörld <b>ünïcode</b></p><style>p{}</style><script>x()</script><!-- hidden --><noscript>js</noscript></body>`)
	if got := Text(doc.Find("body")); got != "Hello Wörld ünïcode js" {
		t.Errorf("Text() = %q", got)
	}
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	t.Run("custom landmark and wrapper", func(t *testing.T) {
		t.Parallel()

		e := mustExtractor(t, WithLandmarkID("content"), WithWrapperClass("page"))

		page := e.Extract(mustDoc(t, `<main id="content">Landmark</main>`))
		if page.Method != "main#content" {
			t.Errorf("Method = %q", page.Method)
		}

		page = e.Extract(mustDoc(t, `<div class="page"><nav>n</nav>Wrapped</div>`))
		if page.Method != "div.page" || page.Text != "Wrapped" {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("invalid selector", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithFallbackBoilerplate([]string{"div[["}))
		if !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("expected ErrInvalidSelector, got %v", err)
		}
	})

	t.Run("invalid class pattern", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithFallbackClassPatterns([]string{"go[0-9"}))
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("expected ErrInvalidPattern, got %v", err)
		}
	})

	t.Run("custom chain", func(t *testing.T) {
		t.Parallel()

		only, err := NewSelectorLocator("article", "article", nil)
		if err != nil {
			t.Fatalf("NewSelectorLocator() error = %v", err)
		}
		e := mustExtractor(t, WithLocators(only))

		page := e.Extract(mustDoc(t, `<article>A</article>`))
		if page.Method != "article" || page.Text != "A" {
			t.Errorf("unexpected page %+v", page)
		}

		page = e.Extract(mustDoc(t, `<p>none</p>`))
		if page.Method != MethodDocumentFallback {
			t.Errorf("expected document fallback, got %q", page.Method)
		}
	})
}

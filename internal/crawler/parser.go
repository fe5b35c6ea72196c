package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ErrParse is returned when neither the strict nor the lenient parser
// could build a document.
var ErrParse = errors.New("failed to parse HTML")

// parseFunc builds a document from a body in the given encoding.
type parseFunc func(body []byte, encoding string) (*goquery.Document, error)

// Parser turns fetched bytes into a goquery document.
type Parser struct {
	strict  parseFunc
	lenient parseFunc
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{strict: parseStrict, lenient: parseLenient}
}

// Parse builds a document from body. encoding is the charset name
// detected by the fetcher; an empty or unknown name means UTF-8.
func (p *Parser) Parse(body []byte, encoding string) (*goquery.Document, error) {
	doc, err := p.strict(body, encoding)
	if err == nil {
		return doc, nil
	}

	doc, lenientErr := p.lenient(body, encoding)
	if lenientErr == nil {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrParse, errors.Join(err, lenientErr))
}

// parseStrict decodes body to UTF-8 and parses it.
func parseStrict(body []byte, encoding string) (*goquery.Document, error) {
	var r io.Reader = bytes.NewReader(body)
	if enc, name := charset.Lookup(encoding); enc != nil && name != "utf-8" {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	return goquery.NewDocumentFromReader(r)
}

// parseLenient skips decoding, replaces invalid UTF-8 and NUL bytes and
// parses what is left.
func parseLenient(body []byte, _ string) (*goquery.Document, error) {
	s := strings.ToValidUTF8(string(body), "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "")

	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

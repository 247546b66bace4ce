package dom

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// MaxHTMLSize limits HTML input to 10MB to prevent memory exhaustion.
const MaxHTMLSize = 10 * 1024 * 1024

const defaultLocation = "http://localhost/"

// Page is a live document under experimentation.
type Page struct {
	root     *html.Node
	doc      *goquery.Document
	location *url.URL
}

// Parse parses an HTML document with automatic charset detection. pageURL
// becomes the page's navigation location; empty means a localhost default.
func Parse(data []byte, pageURL string) (*Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("html content required")
	}
	if len(data) > MaxHTMLSize {
		return nil, fmt.Errorf("html exceeds maximum size of %d bytes", MaxHTMLSize)
	}

	root, err := html.Parse(decodedReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	loc, err := parseLocation(pageURL)
	if err != nil {
		return nil, err
	}

	return &Page{
		root:     root,
		doc:      goquery.NewDocumentFromNode(root),
		location: loc,
	}, nil
}

// decodedReader converts input to UTF-8 based on detected charset,
// falling back to the raw bytes when detection or conversion fails.
func decodedReader(data []byte) *bytes.Reader {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return bytes.NewReader(data)
	}

	name := strings.ToLower(result.Charset)
	if name == "utf-8" || name == "ascii" || (name == "iso-8859-1" && looksASCII(data)) {
		return bytes.NewReader(data)
	}

	r, err := charset.NewReaderLabel(name, bytes.NewReader(data))
	if err != nil {
		return bytes.NewReader(data)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return bytes.NewReader(data)
	}
	return bytes.NewReader(buf.Bytes())
}

func looksASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

func parseLocation(pageURL string) (*url.URL, error) {
	if pageURL == "" {
		pageURL = defaultLocation
	}
	loc, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	return loc, nil
}

// Root returns the document root node.
func (p *Page) Root() *html.Node {
	return p.root
}

// Location returns the page's navigation location. Never nil.
func (p *Page) Location() *url.URL {
	return p.location
}

// SetLocation overrides the navigation location, e.g. after a simulated
// navigation. Invalid URLs are rejected.
func (p *Page) SetLocation(pageURL string) error {
	loc, err := parseLocation(pageURL)
	if err != nil {
		return err
	}
	p.location = loc
	return nil
}

// Find resolves a selector against the document. CSS selectors go through
// goquery; selectors starting with "//" or "xpath=" go through htmlquery.
// Invalid selectors resolve to no elements rather than failing.
func (p *Page) Find(selector string) (nodes []*html.Node) {
	defer func() {
		// cascadia panics on unparseable selectors
		if recover() != nil {
			nodes = nil
		}
	}()

	if expr, ok := xpathExpr(selector); ok {
		found, err := htmlquery.QueryAll(p.root, expr)
		if err != nil {
			return nil
		}
		return found
	}

	return p.doc.Find(selector).Nodes
}

func xpathExpr(selector string) (string, bool) {
	if strings.HasPrefix(selector, "xpath=") {
		return strings.TrimPrefix(selector, "xpath="), true
	}
	if strings.HasPrefix(selector, "//") {
		return selector, true
	}
	return "", false
}

// FindByID walks the tree for the element with the given id attribute.
// Unlike a CSS #id lookup this tolerates ids containing selector
// metacharacters.
func (p *Page) FindByID(id string) *html.Node {
	var found *html.Node
	walk(p.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && GetAttr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindByAttr walks the tree for elements whose attribute exactly equals the
// given value. Unlike an attribute selector this tolerates values containing
// quotes or other selector metacharacters.
func (p *Page) FindByAttr(name, value string) []*html.Node {
	var found []*html.Node
	walk(p.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && HasAttr(n, name) && GetAttr(n, name) == value {
			found = append(found, n)
		}
		return true
	})
	return found
}

// Head returns the document's <head> element. The html parser always
// materializes one.
func (p *Page) Head() *html.Node {
	return p.findElement("head")
}

// Body returns the document's <body> element.
func (p *Page) Body() *html.Node {
	return p.findElement("body")
}

func (p *Page) findElement(tag string) *html.Node {
	var found *html.Node
	walk(p.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// Title returns the document title text.
func (p *Page) Title() string {
	if t := p.findElement("title"); t != nil {
		return Text(t)
	}
	return ""
}

// Render serializes the full document back to HTML.
func (p *Page) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, p.root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// walk visits nodes depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

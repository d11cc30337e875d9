package scraper

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// MaxHTMLSize limits snapshot input to 10MB to prevent memory exhaustion
const MaxHTMLSize = 10 * 1024 * 1024

// Snapshot is a parsed copy of a page's serialized DOM. The node tree is
// shared between the goquery document and XPath queries.
type Snapshot struct {
	root *html.Node
	doc  *goquery.Document
}

// ParseSnapshot parses serialized page markup.
func ParseSnapshot(markup string) (*Snapshot, error) {
	if len(markup) > MaxHTMLSize {
		return nil, fmt.Errorf("html exceeds maximum size of %d bytes", MaxHTMLSize)
	}
	root, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// PreText returns the text content of the first <pre> element, and
// whether one exists. Browsers render raw XML and plain-text documents
// inside a <pre>, so this recovers feeds shown as text.
func (s *Snapshot) PreText() (string, bool) {
	pre := s.doc.Find("pre").First()
	if pre.Length() == 0 {
		return "", false
	}
	return pre.Text(), true
}

// BodyText returns the text content of <body>, script and style text
// included, matching the DOM textContent property.
func (s *Snapshot) BodyText() string {
	return s.doc.Find("body").First().Text()
}

// Title returns the trimmed document title.
func (s *Snapshot) Title() string {
	return strings.TrimSpace(s.doc.Find("title").First().Text())
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a parsed copy of the page at one moment
type Snapshot struct {
	URL   string
	Title string
	HTML  string

	doc *goquery.Document
}

// NewSnapshot parses html. When title is empty the document's <title> is used.
func NewSnapshot(url, title, html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return &Snapshot{URL: url, Title: title, HTML: html, doc: doc}, nil
}

// Doc returns the parsed document
func (s *Snapshot) Doc() *goquery.Document {
	return s.doc
}

// Text returns the visible text of the body, without script and style content
func (s *Snapshot) Text() string {
	body := s.doc.Find("body")
	if body.Length() == 0 {
		body = s.doc.Selection
	}
	visible := body.Clone()
	visible.Find("script, style, noscript, template").Remove()
	return visible.Text()
}

// Count returns how many elements match selector
func (s *Snapshot) Count(selector string) int {
	return s.doc.Find(selector).Length()
}

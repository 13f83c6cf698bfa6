// Package extract derives canonical titles and in-scope links from wiki HTML
// using a structural goquery scan instead of text patterns.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTitleFound is returned when none of the title selectors match.
var ErrNoTitleFound = errors.New("no title found")

// Default selectors, prefix and namespaces for MediaWiki/Fandom sites.
var (
	DefaultTitleSelectors     = []string{"span.mw-page-title-main", "h1#firstHeading"}
	DefaultContentPrefix      = "/wiki/"
	DefaultExcludedNamespaces = []string{"Forum:", "User:", "File:", "Special:"}
)

// Config controls which elements carry the title and which links are in scope.
type Config struct {
	// TitleSelectors are tried in order; the first with non-blank text wins.
	TitleSelectors     []string
	ContentPrefix      string
	ExcludedNamespaces []string
}

// Extractor implements crawler.Extractor. It holds no per-document state.
type Extractor struct {
	titleSelectors []string
	prefix         string
	excluded       []string
}

// New builds an Extractor, filling unset fields with the defaults.
func New(cfg Config) *Extractor {
	selectors := nonBlank(cfg.TitleSelectors)
	if len(selectors) == 0 {
		selectors = DefaultTitleSelectors
	}
	prefix := cfg.ContentPrefix
	if prefix == "" {
		prefix = DefaultContentPrefix
	}
	excluded := cfg.ExcludedNamespaces
	if excluded == nil {
		excluded = DefaultExcludedNamespaces
	}
	return &Extractor{
		titleSelectors: selectors,
		prefix:         prefix,
		excluded:       nonBlank(excluded),
	}
}

// Parse builds a tolerant DOM from a raw body.
func (e *Extractor) Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Title returns the canonical page title. The primary marker always wins over
// the fallback heading when both are present.
func (e *Extractor) Title(doc *goquery.Document) (string, error) {
	for _, selector := range e.titleSelectors {
		text := collapseSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text, nil
		}
	}
	return "", ErrNoTitleFound
}

// DocumentTitle returns the text of the <title> element, or "".
func (e *Extractor) DocumentTitle(doc *goquery.Document) string {
	return collapseSpace(doc.Find("title").First().Text())
}

// Links yields the in-scope relative paths of all anchors, in document order.
// The sequence re-scans the document on every iteration; duplicates are
// yielded as found.
func (e *Extractor) Links(doc *goquery.Document) iter.Seq[string] {
	return func(yield func(string) bool) {
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			path, ok := e.InScope(href)
			if !ok {
				return true
			}
			return yield(path)
		})
	}
}

// InScope reports whether href is a content path outside every excluded
// namespace, returning it without its fragment.
func (e *Extractor) InScope(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if !strings.HasPrefix(href, e.prefix) {
		return "", false
	}
	rest := href[len(e.prefix):]
	if rest == "" {
		return "", false
	}
	for _, token := range e.excluded {
		if len(rest) >= len(token) && strings.EqualFold(rest[:len(token)], token) {
			return "", false
		}
	}
	return href, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

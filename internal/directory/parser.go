// Package directory parses pages of the alphabetically-partitioned people
// directory: listing blurbs, profile links, and profile content blocks.
package directory

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noResultsText is the substring that marks an exhausted partition. The
// marker element is compared case-insensitively after trimming.
const noResultsText = "nothing found"

// Selectors identifies the page elements the parser cares about.
type Selectors struct {
	NoResults string // marker element on listing pages past the last page
	Subtitle  string // listing item blurb elements
	Title     string // heading elements wrapping detail page links
	Content   string // long-form content container on detail pages
}

// DefaultSelectors matches the upstream directory markup.
func DefaultSelectors() Selectors {
	return Selectors{
		NoResults: "p.facetwp-no-results",
		Subtitle:  "p.type-directory-subtitle",
		Title:     "h3[class*='type-directory-title']",
		Content:   ".dynamic-entry-content",
	}
}

// Listing is the parsed form of one keyword-mode index page.
type Listing struct {
	Items     []string
	NoResults bool
}

// Parser extracts structured data from directory page bodies.
type Parser struct {
	selectors Selectors
}

// NewParser creates a parser. Zero-valued selector fields fall back to the
// defaults.
func NewParser(sel Selectors) *Parser {
	def := DefaultSelectors()
	if sel.NoResults == "" {
		sel.NoResults = def.NoResults
	}
	if sel.Subtitle == "" {
		sel.Subtitle = def.Subtitle
	}
	if sel.Title == "" {
		sel.Title = def.Title
	}
	if sel.Content == "" {
		sel.Content = def.Content
	}
	return &Parser{selectors: sel}
}

// ParseListing extracts the blurb items from a listing page, along with
// whether the page carries the no-results marker. Items with empty text are
// skipped. The marker outranks item count: callers should ignore Items when
// NoResults is set.
func (p *Parser) ParseListing(body string) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Listing{}, err
	}

	var listing Listing

	doc.Find(p.selectors.NoResults).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(normalizeText(s.Text())), noResultsText) {
			listing.NoResults = true
			return false
		}
		return true
	})

	doc.Find(p.selectors.Subtitle).Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if text != "" {
			listing.Items = append(listing.Items, text)
		}
	})

	return listing, nil
}

// ParseLinks extracts detail-page URLs from a description-mode index page,
// in document order. Headings without an anchor, or whose anchor has no
// href, are skipped. Relative hrefs are resolved against baseURL.
func (p *Parser) ParseLinks(body string, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find(p.selectors.Title).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Find("a").First().Attr("href")
		if !exists || href == "" {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() {
			linkURL = base.ResolveReference(linkURL)
		}

		links = append(links, linkURL.String())
	})

	return links, nil
}

// ExtractContent returns the normalized text of the content block on a
// detail page. The second return is false when the block is missing, which
// is not an error: the caller logs and skips the page.
func (p *Parser) ExtractContent(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	sel := doc.Find(p.selectors.Content).First()
	if sel.Length() == 0 {
		return "", false
	}

	return normalizeText(sel.Text()), true
}

// normalizeText collapses runs of whitespace into single spaces and trims.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Package parser holds the retailer adapters that turn fetched pages into raw listings.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// ErrNoCards means no card selector matched anything on the page.
	ErrNoCards = errors.New("no product cards found")
	// ErrNoTarget means the source has nothing to fetch for the requested keyword.
	ErrNoTarget = errors.New("source has no url for this request")

	errMissingName  = errors.New("card has no name")
	errMissingLink  = errors.New("card has no link")
	errMissingPrice = errors.New("card has no price")
)

// Source is the extraction contract every retailer adapter implements.
// Implementations never touch storage.
type Source interface {
	// Name is the store name recorded on every snapshot.
	Name() string
	// Target returns the page to fetch for keyword (empty keyword means the catalog page).
	Target(keyword string) (models.FetchTarget, error)
	// Extract returns the candidate listings on page. Bad cards are skipped, not fatal.
	Extract(ctx context.Context, page *models.Page) ([]models.RawListing, error)
}

// PriceMatcher reports whether a line of text is a plausible price.
type PriceMatcher interface {
	Normalize(raw string) (float64, bool)
}

// ExtractError is a page-level extraction failure.
type ExtractError struct {
	Source string
	URL    string
	Err    error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// base implements the declarative parts shared by all adapter kinds.
type base struct {
	cfg      config.Source
	strategy models.FetchStrategy
}

func (b *base) Name() string {
	return b.cfg.Name
}

func (b *base) Target(keyword string) (models.FetchTarget, error) {
	target := models.FetchTarget{
		Strategy:     b.strategy,
		WaitSelector: b.cfg.WaitSelector,
		SettleDelay:  b.cfg.SettleDelay,
		Scroll:       b.cfg.Scroll,
	}

	keyword = strings.TrimSpace(keyword)
	switch {
	case keyword != "" && b.cfg.SearchURL != "":
		target.URL = strings.ReplaceAll(b.cfg.SearchURL, "{query}", url.QueryEscape(keyword))
	case keyword != "" && b.cfg.CatalogURL != "":
		target.URL = b.cfg.CatalogURL
		target.KeywordGuard = true
	case keyword == "" && b.cfg.CatalogURL != "":
		target.URL = b.cfg.CatalogURL
	default:
		return models.FetchTarget{}, ErrNoTarget
	}

	return target, nil
}

// document parses page and returns the matched cards.
func (b *base) document(page *models.Page) (*goquery.Selection, *url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, nil, &ExtractError{Source: b.cfg.Name, URL: page.URL, Err: err}
	}

	cards := findCards(doc.Selection, b.cfg.Selectors.Card)
	if cards.Length() == 0 {
		return nil, nil, &ExtractError{Source: b.cfg.Name, URL: page.URL, Err: ErrNoCards}
	}

	pageURL, err := url.Parse(page.URL)
	if err != nil {
		pageURL = &url.URL{}
	}

	return cards, pageURL, nil
}

// collect walks cards, skipping the ones extract rejects and repeated URLs.
func (b *base) collect(
	cards *goquery.Selection,
	extract func(*goquery.Selection) (models.RawListing, error),
	skip func(idx int, err error),
) []models.RawListing {
	var listings []models.RawListing
	seen := make(map[string]struct{})

	cards.EachWithBreak(func(idx int, card *goquery.Selection) bool {
		if b.cfg.Limit > 0 && len(listings) >= b.cfg.Limit {
			return false
		}

		listing, err := extract(card)
		if err != nil {
			skip(idx, err)
			return true
		}

		if _, dup := seen[listing.URL]; dup {
			return true
		}
		seen[listing.URL] = struct{}{}

		listing.Source = b.cfg.Name
		listings = append(listings, listing)

		return true
	})

	return listings
}

// findCards returns the matches of the first selector that matches anything.
func findCards(doc *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if cards := doc.Find(sel); cards.Length() > 0 {
			return cards
		}
	}
	return doc.Find("__no_cards__")
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolve makes ref absolute against the page URL.
func resolve(pageURL *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	return pageURL.ResolveReference(u).String()
}

// linkOf returns the href of sel if it is an anchor, else of its first descendant anchor.
func linkOf(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "a" {
		if href, ok := sel.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return href
		}
	}
	href, _ := sel.Find("a[href]").First().Attr("href")
	return href
}

// imageOf reads attr from the first match of selector, falling back to lazy-loading attributes.
func imageOf(card *goquery.Selection, selector, attr string) string {
	if selector == "" {
		selector = "img"
	}
	img := card.Find(selector).First()
	if img.Length() == 0 {
		return ""
	}

	attrs := []string{"src", "data-src", "data-lazy-src"}
	if attr != "" {
		attrs = append([]string{attr}, attrs...)
	}
	for _, a := range attrs {
		if v, ok := img.Attr(a); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

// hiddenText are elements whose text is never a current value: scripts and struck-through prices.
var hiddenText = map[string]struct{}{"script": {}, "style": {}, "noscript": {}, "del": {}, "s": {}}

// textLines returns the visible text nodes under sel, one cleaned line per node.
func textLines(sel *goquery.Selection) []string {
	var lines []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := hiddenText[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			if line := cleanText(n.Data); line != "" {
				lines = append(lines, line)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return lines
}

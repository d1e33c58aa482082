package parser

import (
	"context"
	"log/slog"
	"net/url"
	"unicode/utf8"

	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// minFallbackTitle is the rune count a bare link text needs to pass as a product title.
const minFallbackTitle = 6

// TextAdapter handles stores whose markup defeats declarative price selectors:
// the price is the first visible text line the matcher accepts, and the title falls back to
// the first link carrying a long enough text.
type TextAdapter struct {
	base
	log     *slog.Logger
	matcher PriceMatcher
}

func NewTextAdapter(
	log *slog.Logger,
	cfg config.Source,
	strategy models.FetchStrategy,
	matcher PriceMatcher,
) *TextAdapter {
	return &TextAdapter{
		base:    base{cfg: cfg, strategy: strategy},
		log:     log.With("source", cfg.Name, "kind", KindText),
		matcher: matcher,
	}
}

func (a *TextAdapter) Extract(ctx context.Context, page *models.Page) ([]models.RawListing, error) {
	cards, pageURL, err := a.document(page)
	if err != nil {
		return nil, err
	}

	listings := a.collect(cards, func(card *goquery.Selection) (models.RawListing, error) {
		return a.extractCard(card, pageURL)
	}, func(idx int, err error) {
		a.log.DebugContext(ctx, "skipping card", "index", idx, "reason", err.Error())
	})

	a.log.DebugContext(ctx, "Extracted listings", "cards", cards.Length(), "listings", len(listings))

	return listings, nil
}

func (a *TextAdapter) extractCard(card *goquery.Selection, pageURL *url.URL) (models.RawListing, error) {
	var priceText string
	for _, line := range textLines(card) {
		if _, ok := a.matcher.Normalize(line); ok {
			priceText = line
			break
		}
	}
	if priceText == "" {
		return models.RawListing{}, errMissingPrice
	}

	name, href := a.title(card)
	if name == "" {
		return models.RawListing{}, errMissingName
	}
	link := resolve(pageURL, href)
	if link == "" {
		return models.RawListing{}, errMissingLink
	}

	return models.RawListing{
		Name:      name,
		URL:       link,
		PriceText: priceText,
		ImageURL:  resolve(pageURL, imageOf(card, a.cfg.Selectors.Image, a.cfg.Selectors.ImageAttr)),
	}, nil
}

// title prefers the configured title selector, then any link with a meaningful text.
func (a *TextAdapter) title(card *goquery.Selection) (string, string) {
	if a.cfg.Selectors.Name != "" {
		if sel := card.Find(a.cfg.Selectors.Name).First(); sel.Length() > 0 {
			if name := cleanText(sel.Text()); name != "" {
				href := linkOf(sel)
				if href == "" {
					href = linkOf(card)
				}
				return name, href
			}
		}
	}

	var name, href string
	card.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		text := cleanText(link.Text())
		if utf8.RuneCountInString(text) < minFallbackTitle {
			return true
		}
		name = text
		href, _ = link.Attr("href")
		return false
	})

	return name, href
}

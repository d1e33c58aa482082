package parser

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// SelectorAdapter extracts listings purely from configured CSS selectors.
type SelectorAdapter struct {
	base
	log *slog.Logger
}

func NewSelectorAdapter(log *slog.Logger, cfg config.Source, strategy models.FetchStrategy) *SelectorAdapter {
	return &SelectorAdapter{
		base: base{cfg: cfg, strategy: strategy},
		log:  log.With("source", cfg.Name, "kind", KindSelector),
	}
}

func (a *SelectorAdapter) Extract(ctx context.Context, page *models.Page) ([]models.RawListing, error) {
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

func (a *SelectorAdapter) extractCard(card *goquery.Selection, pageURL *url.URL) (models.RawListing, error) {
	sel := a.cfg.Selectors

	nameSel := card.Find(sel.Name).First()
	name := cleanText(nameSel.Text())
	if name == "" {
		return models.RawListing{}, errMissingName
	}

	var href string
	if sel.Link != "" {
		href = linkOf(card.Find(sel.Link).First())
	} else {
		href = linkOf(nameSel)
	}
	if href == "" {
		href = linkOf(card)
	}
	link := resolve(pageURL, href)
	if link == "" {
		return models.RawListing{}, errMissingLink
	}

	priceSel := card.Find(sel.Price).First()
	var priceText string
	if sel.PriceAttr != "" {
		priceText, _ = priceSel.Attr(sel.PriceAttr)
	} else {
		priceText = priceSel.Text()
	}
	priceText = cleanText(priceText)
	if priceText == "" {
		return models.RawListing{}, errMissingPrice
	}

	return models.RawListing{
		Name:      name,
		URL:       link,
		PriceText: strings.TrimSpace(priceText),
		ImageURL:  resolve(pageURL, imageOf(card, sel.Image, sel.ImageAttr)),
	}, nil
}

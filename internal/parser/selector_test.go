package parser_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nisseiConfig() config.Source {
	return config.Source{
		Name:      "Nissei",
		Kind:      parser.KindSelector,
		SearchURL: "https://nissei.example/catalogsearch/result/?q={query}",
		Selectors: config.Selectors{
			Card:  []string{"li.product-item"},
			Name:  "a.product-item-link",
			Price: ".price",
			Image: "img.product-image-photo",
		},
	}
}

const nisseiHTML = `
<html><body>
<ol class="products">
	<li class="product-item">
		<img class="product-image-photo" src="/media/iphone15.jpg">
		<a class="product-item-link" href="/py/apple-iphone-15-128gb"> Apple iPhone 15 128GB </a>
		<span class="price">Gs. 6.990.000</span>
	</li>
	<li class="product-item">
		<a class="product-item-link" href="https://nissei.example/py/galaxy-a15">Samsung Galaxy A15</a>
		<span class="price-box"><span class="price">Gs.&nbsp;1.390.000</span></span>
	</li>
	<li class="product-item">
		<a class="product-item-link" href="/py/no-price">Item without price</a>
	</li>
	<li class="product-item">
		<span class="price">Gs. 10.000</span>
	</li>
	<li class="product-item">
		<a class="product-item-link" href="/py/apple-iphone-15-128gb">Apple iPhone 15 128GB duplicate</a>
		<span class="price">Gs. 6.990.000</span>
	</li>
</ol>
</body></html>`

func TestSelectorAdapter_Extract(t *testing.T) {
	adapter := parser.NewSelectorAdapter(discardLogger(), nisseiConfig(), models.StrategyStatic)

	page := &models.Page{URL: "https://nissei.example/py/catalogsearch/result/?q=phone", HTML: []byte(nisseiHTML)}

	listings, err := adapter.Extract(t.Context(), page)
	require.NoError(t, err)

	expected := []models.RawListing{
		{
			Source:    "Nissei",
			Name:      "Apple iPhone 15 128GB",
			URL:       "https://nissei.example/py/apple-iphone-15-128gb",
			PriceText: "Gs. 6.990.000",
			ImageURL:  "https://nissei.example/media/iphone15.jpg",
		},
		{
			Source:    "Nissei",
			Name:      "Samsung Galaxy A15",
			URL:       "https://nissei.example/py/galaxy-a15",
			PriceText: "Gs. 1.390.000",
		},
	}
	assert.Equal(t, expected, listings)
}

func TestSelectorAdapter_Limit(t *testing.T) {
	cfg := nisseiConfig()
	cfg.Limit = 1
	adapter := parser.NewSelectorAdapter(discardLogger(), cfg, models.StrategyStatic)

	listings, err := adapter.Extract(t.Context(), &models.Page{URL: "https://nissei.example/", HTML: []byte(nisseiHTML)})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Apple iPhone 15 128GB", listings[0].Name)
}

func TestSelectorAdapter_PriceAttribute(t *testing.T) {
	cfg := nisseiConfig()
	cfg.Selectors.Price = "[data-price-amount]"
	cfg.Selectors.PriceAttr = "data-price-amount"
	adapter := parser.NewSelectorAdapter(discardLogger(), cfg, models.StrategyStatic)

	markup := `<ul><li class="product-item">
		<a class="product-item-link" href="/p/1">Motorola Edge 50</a>
		<span data-price-amount="3250000"><span class="price">Gs. 3.250.000</span></span>
	</li></ul>`

	listings, err := adapter.Extract(t.Context(), &models.Page{URL: "https://nissei.example/", HTML: []byte(markup)})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "3250000", listings[0].PriceText)
}

func TestSelectorAdapter_NoCards(t *testing.T) {
	adapter := parser.NewSelectorAdapter(discardLogger(), nisseiConfig(), models.StrategyStatic)

	testCases := []struct {
		name  string
		input string
	}{
		{name: "Empty HTML", input: ""},
		{name: "Redesigned page", input: `<div class="grid"><div class="tile">Phone</div></div>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			listings, err := adapter.Extract(t.Context(), &models.Page{URL: "https://nissei.example/", HTML: []byte(tc.input)})

			assert.Nil(t, listings)
			require.ErrorIs(t, err, parser.ErrNoCards)

			var extractErr *parser.ExtractError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, "Nissei", extractErr.Source)
		})
	}
}

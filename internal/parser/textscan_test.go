package parser_test

import (
	"testing"

	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/normalizer"
	"github.com/Houeta/offerhunt/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tiendaConfig() config.Source {
	return config.Source{
		Name:       "TiendaMovil",
		Kind:       parser.KindText,
		Strategy:   string(models.StrategyRendered),
		CatalogURL: "https://tienda.example/shop/",
		Selectors: config.Selectors{
			Card: []string{"article.product-miniature", "div.product-grid-item"},
			Name: "h3.product-title",
		},
	}
}

const tiendaHTML = `
<html><body>
<div class="product-grid-item">
	<span class="onsale">-15%</span>
	<img src="data:image/svg+xml;base64,AAA" data-lazy-src="https://cdn.tienda.example/a54.jpg">
	<h3 class="product-title"><a href="/producto/galaxy-a54">Samsung Galaxy A54 256GB</a></h3>
	<span class="price"><del>Gs. 3.100.000</del> <ins>Gs. 2.650.000</ins></span>
	<a class="button" href="?add-to-cart=12">Añadir al carrito</a>
</div>
<div class="product-grid-item">
	<a href="/producto/redmi-note-13">Xiaomi Redmi Note 13</a>
	<span>Cuotas de Gs. 1.000</span>
	<span>Gs. 1.450.000</span>
</div>
<div class="product-grid-item">
	<h3 class="product-title"><a href="/producto/case">Funda</a></h3>
	<span>Consultar precio</span>
</div>
<div class="product-grid-item">
	<a href="/x">Ver</a>
	<span>Gs. 1.200.000</span>
</div>
</body></html>`

func TestTextAdapter_Extract(t *testing.T) {
	matcher := normalizer.New(normalizer.DefaultOptions())
	adapter := parser.NewTextAdapter(discardLogger(), tiendaConfig(), models.StrategyRendered, matcher)

	page := &models.Page{URL: "https://tienda.example/shop/", HTML: []byte(tiendaHTML)}

	listings, err := adapter.Extract(t.Context(), page)
	require.NoError(t, err)

	expected := []models.RawListing{
		{
			Source:    "TiendaMovil",
			Name:      "Samsung Galaxy A54 256GB",
			URL:       "https://tienda.example/producto/galaxy-a54",
			PriceText: "Gs. 2.650.000",
			ImageURL:  "https://cdn.tienda.example/a54.jpg",
		},
		{
			Source:    "TiendaMovil",
			Name:      "Xiaomi Redmi Note 13",
			URL:       "https://tienda.example/producto/redmi-note-13",
			PriceText: "Gs. 1.450.000",
		},
	}
	assert.Equal(t, expected, listings)
}

func TestTextAdapter_FallbackCardSelector(t *testing.T) {
	matcher := normalizer.New(normalizer.DefaultOptions())
	adapter := parser.NewTextAdapter(discardLogger(), tiendaConfig(), models.StrategyRendered, matcher)

	markup := `<section><article class="product-miniature">
		<a href="https://tienda.example/producto/iphone-13">Apple iPhone 13 128GB</a>
		<p>₲ 4.990.000</p>
	</article></section>`

	listings, err := adapter.Extract(t.Context(), &models.Page{URL: "https://tienda.example/", HTML: []byte(markup)})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "₲ 4.990.000", listings[0].PriceText)
	assert.Equal(t, "Apple iPhone 13 128GB", listings[0].Name)
}

func TestTextAdapter_SkipsWordsContainingMarkerLetters(t *testing.T) {
	matcher := normalizer.New(normalizer.DefaultOptions())
	adapter := parser.NewTextAdapter(discardLogger(), tiendaConfig(), models.StrategyRendered, matcher)

	markup := `<section><article class="product-miniature">
		<a href="https://tienda.example/producto/pendrive">Pendrive Kingston 64GB</a>
		<p>Kingston 85.000</p>
		<p>Gs. 120.000</p>
	</article></section>`

	listings, err := adapter.Extract(t.Context(), &models.Page{URL: "https://tienda.example/", HTML: []byte(markup)})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Gs. 120.000", listings[0].PriceText)
}

func TestTextAdapter_NoCards(t *testing.T) {
	matcher := normalizer.New(normalizer.DefaultOptions())
	adapter := parser.NewTextAdapter(discardLogger(), tiendaConfig(), models.StrategyRendered, matcher)

	listings, err := adapter.Extract(t.Context(), &models.Page{URL: "https://tienda.example/", HTML: []byte("<p>Mantenimiento</p>")})

	assert.Nil(t, listings)
	require.ErrorIs(t, err, parser.ErrNoCards)
}

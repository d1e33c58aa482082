package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/repository"
)

// Search returns products whose name contains query, each with its latest snapshot,
// cheapest first. Matching ignores case and accents.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	const op = "repository.sqlite.Search"

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.url, p.image_url, p.origin, p.created_at,
			s.id, s.product_id, s.amount, s.store, s.captured_at
		FROM products p
		JOIN price_snapshots s ON s.id = (
			SELECT s2.id FROM price_snapshots s2
			WHERE s2.product_id = p.id
			ORDER BY s2.captured_at DESC, s2.id DESC
			LIMIT 1
		)
		WHERE p.name_folded LIKE ? ESCAPE '\'
		ORDER BY s.amount ASC, p.id ASC
		LIMIT ?`,
		repository.ContainsPattern(query), repository.ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var res models.SearchResult
		p, s := &res.Product, &res.Latest
		if err = rows.Scan(
			&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Origin, &p.CreatedAt,
			&s.ID, &s.ProductID, &s.Amount, &s.Store, &s.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: failed to scan result: %w", op, err)
		}
		results = append(results, res)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", op, err)
	}

	return results, nil
}

// ListProducts returns a page of products, newest first, each with its full price history.
func (r *Repository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.ProductHistory, error) {
	const op = "repository.sqlite.ListProducts"

	where := []string{`name_folded LIKE ? ESCAPE '\'`}
	args := []any{repository.ContainsPattern(filter.Search)}
	if filter.Origin != "" {
		where = append(where, "origin = ?")
		args = append(args, string(filter.Origin))
	}
	args = append(args, repository.ClampLimit(filter.Limit), max(filter.Skip, 0))

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, url, image_url, origin, created_at
		FROM products
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var (
		products []models.ProductHistory
		index    = make(map[int64]int)
	)
	for rows.Next() {
		var p models.ProductHistory
		if err = rows.Scan(&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Origin, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan product: %w", op, err)
		}
		p.Prices = []models.PriceSnapshot{}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", op, err)
	}
	rows.Close()

	if len(products) == 0 {
		return products, nil
	}

	ids := make([]any, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	priceRows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, amount, store, captured_at
		FROM price_snapshots
		WHERE product_id IN (?`+strings.Repeat(", ?", len(ids)-1)+`)
		ORDER BY captured_at ASC, id ASC`,
		ids...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load history: %w", op, err)
	}
	defer priceRows.Close()

	snapshots, err := scanSnapshots(priceRows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, s := range snapshots {
		i := index[s.ProductID]
		products[i].Prices = append(products[i].Prices, s)
	}

	return products, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/repository"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) LatestPrice(ctx context.Context, productID int64) (models.PriceSnapshot, error) {
	const op = "repository.postgres.LatestPrice"

	var s models.PriceSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT id, product_id, amount, store, captured_at
		FROM price_snapshots
		WHERE product_id = $1
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`,
		productID,
	).Scan(&s.ID, &s.ProductID, &s.Amount, &s.Store, &s.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PriceSnapshot{}, repository.ErrSnapshotNotFound
		}
		return models.PriceSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (r *Repository) PriceHistory(ctx context.Context, productID int64) ([]models.PriceSnapshot, error) {
	const op = "repository.postgres.PriceHistory"

	history, err := r.snapshots(ctx, `
		SELECT id, product_id, amount, store, captured_at
		FROM price_snapshots
		WHERE product_id = $1
		ORDER BY captured_at ASC, id ASC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return history, nil
}

func (r *Repository) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	const op = "repository.postgres.Search"

	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.url, p.image_url, p.origin, p.created_at,
			s.id, s.product_id, s.amount, s.store, s.captured_at
		FROM products p
		JOIN LATERAL (
			SELECT id, product_id, amount, store, captured_at
			FROM price_snapshots s2
			WHERE s2.product_id = p.id
			ORDER BY s2.captured_at DESC, s2.id DESC
			LIMIT 1
		) s ON true
		WHERE p.name_folded LIKE $1 ESCAPE '\'
		ORDER BY s.amount ASC, p.id ASC
		LIMIT $2`,
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

func (r *Repository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.ProductHistory, error) {
	const op = "repository.postgres.ListProducts"

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, url, image_url, origin, created_at
		FROM products
		WHERE name_folded LIKE $1 ESCAPE '\'
			AND ($2 = '' OR origin = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		repository.ContainsPattern(filter.Search), string(filter.Origin),
		repository.ClampLimit(filter.Limit), max(filter.Skip, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var (
		products []models.ProductHistory
		ids      []int64
		index    = make(map[int64]int)
	)
	for rows.Next() {
		var p models.ProductHistory
		if err = rows.Scan(&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Origin, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan product: %w", op, err)
		}
		p.Prices = []models.PriceSnapshot{}
		index[p.ID] = len(products)
		ids = append(ids, p.ID)
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", op, err)
	}
	rows.Close()

	if len(products) == 0 {
		return products, nil
	}

	snapshots, err := r.snapshots(ctx, `
		SELECT id, product_id, amount, store, captured_at
		FROM price_snapshots
		WHERE product_id = ANY($1)
		ORDER BY captured_at ASC, id ASC`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load history: %w", op, err)
	}
	for _, s := range snapshots {
		i := index[s.ProductID]
		products[i].Prices = append(products[i].Prices, s)
	}

	return products, nil
}

func (r *Repository) SetAlert(ctx context.Context, alert models.TrackingAlert) error {
	const op = "repository.postgres.SetAlert"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO tracking_alerts (chat_id, keyword, target_price, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
		ON CONFLICT (chat_id) DO UPDATE SET
			keyword = EXCLUDED.keyword,
			target_price = EXCLUDED.target_price,
			created_at = EXCLUDED.created_at`,
		alert.ChatID, alert.Keyword, alert.TargetPrice, nullTime(alert),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) GetAlert(ctx context.Context, chatID int64) (models.TrackingAlert, error) {
	const op = "repository.postgres.GetAlert"

	var alert models.TrackingAlert
	err := r.pool.QueryRow(
		ctx,
		"SELECT chat_id, keyword, target_price, created_at FROM tracking_alerts WHERE chat_id = $1",
		chatID,
	).Scan(&alert.ChatID, &alert.Keyword, &alert.TargetPrice, &alert.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TrackingAlert{}, repository.ErrAlertNotFound
		}
		return models.TrackingAlert{}, fmt.Errorf("%s: %w", op, err)
	}
	return alert, nil
}

func (r *Repository) DeleteAlert(ctx context.Context, chatID int64) error {
	const op = "repository.postgres.DeleteAlert"
	if _, err := r.pool.Exec(ctx, "DELETE FROM tracking_alerts WHERE chat_id = $1", chatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) ListAlerts(ctx context.Context) ([]models.TrackingAlert, error) {
	const op = "repository.postgres.ListAlerts"

	rows, err := r.pool.Query(
		ctx,
		"SELECT chat_id, keyword, target_price, created_at FROM tracking_alerts ORDER BY chat_id",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var alerts []models.TrackingAlert
	for rows.Next() {
		var alert models.TrackingAlert
		if err = rows.Scan(&alert.ChatID, &alert.Keyword, &alert.TargetPrice, &alert.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan alert: %w", op, err)
		}
		alerts = append(alerts, alert)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", op, err)
	}
	return alerts, nil
}

func (r *Repository) snapshots(ctx context.Context, query string, args ...any) ([]models.PriceSnapshot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.PriceSnapshot
	for rows.Next() {
		var s models.PriceSnapshot
		if err = rows.Scan(&s.ID, &s.ProductID, &s.Amount, &s.Store, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return snapshots, nil
}

func nullTime(alert models.TrackingAlert) any {
	if alert.CreatedAt.IsZero() {
		return nil
	}
	return alert.CreatedAt
}

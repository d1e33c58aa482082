package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/repository"
)

// LatestPrice returns the most recently captured snapshot of a product.
func (r *Repository) LatestPrice(ctx context.Context, productID int64) (models.PriceSnapshot, error) {
	const op = "repository.sqlite.LatestPrice"

	var s models.PriceSnapshot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, amount, store, captured_at
		FROM price_snapshots
		WHERE product_id = ?
		ORDER BY captured_at DESC, id DESC
		LIMIT 1`,
		productID,
	).Scan(&s.ID, &s.ProductID, &s.Amount, &s.Store, &s.CapturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PriceSnapshot{}, repository.ErrSnapshotNotFound
		}
		return models.PriceSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// PriceHistory returns every snapshot of a product in capture order.
func (r *Repository) PriceHistory(ctx context.Context, productID int64) ([]models.PriceSnapshot, error) {
	const op = "repository.sqlite.PriceHistory"

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, amount, store, captured_at
		FROM price_snapshots
		WHERE product_id = ?
		ORDER BY captured_at ASC, id ASC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	history, err := scanSnapshots(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return history, nil
}

func scanSnapshots(rows *sql.Rows) ([]models.PriceSnapshot, error) {
	var snapshots []models.PriceSnapshot
	for rows.Next() {
		var s models.PriceSnapshot
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Amount, &s.Store, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return snapshots, nil
}

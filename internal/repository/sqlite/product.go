package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/normalizer"
	"github.com/Houeta/offerhunt/internal/repository"
)

const upsertProductQuery = `
	INSERT INTO products (name, name_folded, url, image_url, origin, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		name = excluded.name,
		name_folded = excluded.name_folded,
		image_url = CASE WHEN excluded.image_url <> '' THEN excluded.image_url ELSE products.image_url END,
		origin = CASE WHEN products.origin = 'web' OR excluded.origin = 'web' THEN 'web' ELSE 'bot' END
	RETURNING id`

const insertSnapshotQuery = `
	INSERT INTO price_snapshots (product_id, amount, store, captured_at)
	VALUES (?, ?, ?, ?)`

// UpsertProduct inserts the product or refreshes the one stored under the same URL.
// The origin is promoted, never demoted.
func (r *Repository) UpsertProduct(ctx context.Context, in models.ProductInput) (int64, error) {
	const op = "repository.sqlite.UpsertProduct"

	if err := repository.ValidateProduct(in); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := r.upsertProduct(ctx, r.db, in)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// AppendPrice records a new snapshot, even if the amount equals the latest one.
func (r *Repository) AppendPrice(ctx context.Context, productID int64, amount float64, store string) (int64, error) {
	const op = "repository.sqlite.AppendPrice"

	if amount <= 0 {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrInvalidAmount)
	}

	id, err := r.appendPrice(ctx, r.db, productID, amount, store)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// RecordObservation atomically upserts the product and appends its price.
func (r *Repository) RecordObservation(ctx context.Context, obs models.Observation) (models.Recorded, error) {
	const op = "repository.sqlite.RecordObservation"

	if err := repository.ValidateObservation(obs); err != nil {
		return models.Recorded{}, fmt.Errorf("%s: %w", op, err)
	}

	// 1. begin transaction
	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return models.Recorded{}, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit only returns sql.ErrTxDone

	// 2. Insert or refresh the product.
	productID, err := r.upsertProduct(ctx, tx, obs.Product)
	if err != nil {
		return models.Recorded{}, fmt.Errorf("%s: %w", op, err)
	}

	// 3. Append the snapshot.
	snapshotID, err := r.appendPrice(ctx, tx, productID, obs.Amount, obs.Store)
	if err != nil {
		return models.Recorded{}, fmt.Errorf("%s: %w", op, err)
	}

	// 4. Both rows or neither.
	if err = tx.Commit(); err != nil {
		return models.Recorded{}, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return models.Recorded{ProductID: productID, SnapshotID: snapshotID}, nil
}

// GetProduct returns the product with the given id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	const op = "repository.sqlite.GetProduct"

	var p models.Product
	err := r.db.QueryRowContext(
		ctx,
		"SELECT id, name, url, image_url, origin, created_at FROM products WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Origin, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Product{}, repository.ErrProductNotFound
		}
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (r *Repository) upsertProduct(ctx context.Context, q querier, in models.ProductInput) (int64, error) {
	var id int64
	err := q.QueryRowContext(
		ctx, upsertProductQuery,
		in.Name, normalizer.Fold(in.Name), in.URL, in.ImageURL, string(in.Origin), r.now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product %s: %w", in.URL, err)
	}
	return id, nil
}

func (r *Repository) appendPrice(ctx context.Context, q querier, productID int64, amount float64, store string) (int64, error) {
	res, err := q.ExecContext(ctx, insertSnapshotQuery, productID, amount, store, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot for product %d: %w", productID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot id: %w", err)
	}
	return id, nil
}

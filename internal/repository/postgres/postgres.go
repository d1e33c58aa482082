// Package postgres is the PostgreSQL price store, used when several processes share one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/normalizer"
	"github.com/Houeta/offerhunt/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ repository.Store = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewRepository connects to dsn and migrates the schema.
func NewRepository(ctx context.Context, log *slog.Logger, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{pool: pool, log: log}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		name_folded TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		image_url TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL CHECK (origin IN ('web', 'bot')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS price_snapshots (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		store TEXT NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_price_snapshots_product
		ON price_snapshots (product_id, captured_at, id);

	CREATE TABLE IF NOT EXISTS tracking_alerts (
		chat_id BIGINT PRIMARY KEY,
		keyword TEXT NOT NULL,
		target_price DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	if _, err := pool.Exec(ctx, migrationQuery); err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}
	return migrateFoldedNames(ctx, pool)
}

// migrateFoldedNames adds name_folded to databases created before it existed and fills it in.
func migrateFoldedNames(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, "ALTER TABLE products ADD COLUMN IF NOT EXISTS name_folded TEXT NOT NULL DEFAULT ''")
	if err != nil {
		return fmt.Errorf("failed to add name_folded column: %w", err)
	}

	rows, err := pool.Query(ctx, "SELECT id, name FROM products WHERE name_folded = ''")
	if err != nil {
		return fmt.Errorf("failed to select unfolded names: %w", err)
	}
	folded := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err = rows.Scan(&id, &name); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan unfolded name: %w", err)
		}
		folded[id] = normalizer.Fold(name)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	for id, name := range folded {
		if _, err = pool.Exec(ctx, "UPDATE products SET name_folded = $1 WHERE id = $2", name, id); err != nil {
			return fmt.Errorf("failed to fold name of product %d: %w", id, err)
		}
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("repository.postgres.Ping: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) UpsertProduct(ctx context.Context, in models.ProductInput) (int64, error) {
	const op = "repository.postgres.UpsertProduct"

	if err := repository.ValidateProduct(in); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := upsertProduct(ctx, r.pool, in)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func (r *Repository) AppendPrice(ctx context.Context, productID int64, amount float64, store string) (int64, error) {
	const op = "repository.postgres.AppendPrice"

	if amount <= 0 {
		return 0, fmt.Errorf("%s: %w", op, repository.ErrInvalidAmount)
	}

	id, err := appendPrice(ctx, r.pool, productID, amount, store)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func (r *Repository) RecordObservation(ctx context.Context, obs models.Observation) (models.Recorded, error) {
	const op = "repository.postgres.RecordObservation"

	if err := repository.ValidateObservation(obs); err != nil {
		return models.Recorded{}, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Recorded{}, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	productID, err := upsertProduct(ctx, tx, obs.Product)
	if err != nil {
		return models.Recorded{}, fmt.Errorf("%s: %w", op, err)
	}

	snapshotID, err := appendPrice(ctx, tx, productID, obs.Amount, obs.Store)
	if err != nil {
		return models.Recorded{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Recorded{}, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return models.Recorded{ProductID: productID, SnapshotID: snapshotID}, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	const op = "repository.postgres.GetProduct"

	var p models.Product
	err := r.pool.QueryRow(
		ctx,
		"SELECT id, name, url, image_url, origin, created_at FROM products WHERE id = $1",
		id,
	).Scan(&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Origin, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Product{}, repository.ErrProductNotFound
		}
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func upsertProduct(ctx context.Context, q querier, in models.ProductInput) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO products (name, name_folded, url, image_url, origin)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			name_folded = EXCLUDED.name_folded,
			image_url = CASE WHEN EXCLUDED.image_url <> '' THEN EXCLUDED.image_url ELSE products.image_url END,
			origin = CASE WHEN products.origin = 'web' OR EXCLUDED.origin = 'web' THEN 'web' ELSE 'bot' END
		RETURNING id`,
		in.Name, normalizer.Fold(in.Name), in.URL, in.ImageURL, string(in.Origin),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert product %s: %w", in.URL, err)
	}
	return id, nil
}

func appendPrice(ctx context.Context, q querier, productID int64, amount float64, store string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO price_snapshots (product_id, amount, store, captured_at)
		VALUES ($1, $2, $3, clock_timestamp())
		RETURNING id`,
		productID, amount, store,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot for product %d: %w", productID, err)
	}
	return id, nil
}

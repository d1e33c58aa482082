package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/offerhunt/internal/normalizer"
	"github.com/Houeta/offerhunt/internal/repository"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

var _ repository.Store = (*Repository)(nil)

// Repository is the SQLite price store. Concurrent writers are serialized by SQLite itself:
// transactions start with BEGIN IMMEDIATE and wait on the busy timeout instead of failing.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewRepository opens (or creates) the database file and migrates the schema.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate",
		storagePath,
	)

	dtb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Check if the connection is actually established.
	if err = dtb.PingContext(ctx); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	// Perform the initial schema migration.
	if err = initSchema(ctx, dtb); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log, now: utcNow}, nil
}

// NewForTest wraps an existing connection, typically a sqlmock one.
func NewForTest(dtb *sql.DB) *Repository {
	return &Repository{
		db:  dtb,
		log: slog.New(slog.DiscardHandler),
		now: func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// initSchema creates the necessary tables if they don't already exist.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		name_folded TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		image_url TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL CHECK (origin IN ('web', 'bot')),
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		amount REAL NOT NULL CHECK (amount > 0),
		store TEXT NOT NULL,
		captured_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_snapshots_product
		ON price_snapshots (product_id, captured_at, id);

	CREATE TABLE IF NOT EXISTS tracking_alerts (
		chat_id INTEGER PRIMARY KEY,
		keyword TEXT NOT NULL,
		target_price REAL,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return migrateFoldedNames(ctx, dtb)
}

// migrateFoldedNames adds name_folded to databases created before it existed and fills it in.
func migrateFoldedNames(ctx context.Context, dtb *sql.DB) error {
	var present int
	err := dtb.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM pragma_table_info('products') WHERE name = 'name_folded'",
	).Scan(&present)
	if err != nil {
		return fmt.Errorf("failed to inspect products table: %w", err)
	}
	if present == 0 {
		if _, err = dtb.ExecContext(ctx, "ALTER TABLE products ADD COLUMN name_folded TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("failed to add name_folded column: %w", err)
		}
	}

	rows, err := dtb.QueryContext(ctx, "SELECT id, name FROM products WHERE name_folded = ''")
	if err != nil {
		return fmt.Errorf("failed to select unfolded names: %w", err)
	}
	defer rows.Close()

	folded := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err = rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("failed to scan unfolded name: %w", err)
		}
		folded[id] = normalizer.Fold(name)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}
	rows.Close()

	for id, name := range folded {
		if _, err = dtb.ExecContext(ctx, "UPDATE products SET name_folded = ? WHERE id = ?", name, id); err != nil {
			return fmt.Errorf("failed to fold name of product %d: %w", id, err)
		}
	}

	return nil
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("repository.sqlite.Ping: %w", err)
	}
	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}

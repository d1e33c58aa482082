// Package repository defines the price store contract shared by the storage drivers.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/normalizer"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrSnapshotNotFound = errors.New("no price snapshot for product")
	ErrAlertNotFound    = errors.New("tracking alert not found")
	ErrInvalidAmount    = errors.New("price amount must be positive")
	ErrInvalidProduct   = errors.New("product url and name are required")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ProductStore persists products and their append-only price history.
type ProductStore interface {
	// UpsertProduct inserts or refreshes the product identified by its URL and returns its id.
	UpsertProduct(ctx context.Context, in models.ProductInput) (int64, error)
	// AppendPrice always inserts a new snapshot.
	AppendPrice(ctx context.Context, productID int64, amount float64, store string) (int64, error)
	// RecordObservation upserts the product and appends its price in one transaction.
	RecordObservation(ctx context.Context, obs models.Observation) (models.Recorded, error)
	LatestPrice(ctx context.Context, productID int64) (models.PriceSnapshot, error)
	PriceHistory(ctx context.Context, productID int64) ([]models.PriceSnapshot, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	// Search matches query as a case-insensitive substring of the product name and
	// orders the results by latest price ascending.
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.ProductHistory, error)
}

// AlertStore persists one tracking alert per chat.
type AlertStore interface {
	SetAlert(ctx context.Context, alert models.TrackingAlert) error
	GetAlert(ctx context.Context, chatID int64) (models.TrackingAlert, error)
	DeleteAlert(ctx context.Context, chatID int64) error
	ListAlerts(ctx context.Context) ([]models.TrackingAlert, error)
}

// Store is the complete price store.
type Store interface {
	ProductStore
	AlertStore
	Ping(ctx context.Context) error
	Close() error
}

// ClampLimit bounds a caller supplied page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// ContainsPattern builds a LIKE pattern matching the folded query literally, escaped with '\'.
// It is meant for the name_folded column.
func ContainsPattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(normalizer.Fold(query))
	return "%" + escaped + "%"
}

// ValidateObservation checks the fields every driver requires before writing.
func ValidateObservation(obs models.Observation) error {
	if err := ValidateProduct(obs.Product); err != nil {
		return err
	}
	if obs.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateProduct checks a product input before it is upserted.
func ValidateProduct(in models.ProductInput) error {
	if strings.TrimSpace(in.URL) == "" || strings.TrimSpace(in.Name) == "" {
		return ErrInvalidProduct
	}
	return in.Origin.Validate()
}

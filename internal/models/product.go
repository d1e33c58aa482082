package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOrigin is returned when an origin tag is neither web nor bot.
var ErrInvalidOrigin = errors.New("invalid origin tag")

// Origin marks the path through which a product was discovered.
type Origin string

const (
	// OriginWeb products were seen through the public live-search path and surface in the feed.
	OriginWeb Origin = "web"
	// OriginBot products were discovered by background or chat-triggered runs.
	OriginBot Origin = "bot"
)

// Validate reports whether o is a known origin tag.
func (o Origin) Validate() error {
	switch o {
	case OriginWeb, OriginBot:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, string(o))
	}
}

// Promote applies the monotonic origin rule: bot may become web, web never becomes bot.
func (o Origin) Promote(incoming Origin) Origin {
	if o == OriginWeb || incoming == OriginWeb {
		return OriginWeb
	}
	return OriginBot
}

// Product is a tracked item identified by its canonical source URL.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
}

// PriceSnapshot is one immutable price observation.
type PriceSnapshot struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"productId"`
	Amount     float64   `json:"amount"`
	Store      string    `json:"store"`
	CapturedAt time.Time `json:"capturedAt"`
}

// ProductInput carries the mutable product attributes written on every ingestion.
type ProductInput struct {
	URL      string
	Name     string
	ImageURL string
	Origin   Origin
}

// Observation is a product sighting with its price, persisted atomically.
type Observation struct {
	Product ProductInput
	Amount  float64
	Store   string
}

// Recorded holds the identifiers produced by persisting an Observation.
type Recorded struct {
	ProductID  int64
	SnapshotID int64
}

// SearchResult pairs a product with its latest snapshot.
type SearchResult struct {
	Product Product
	Latest  PriceSnapshot
}

// ProductHistory is a product with its full price history in capture order.
type ProductHistory struct {
	Product
	Prices []PriceSnapshot `json:"prices"`
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	Search string
	Origin Origin // empty means any
	Skip   int
	Limit  int
}

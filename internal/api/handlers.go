package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/parser"
	"github.com/Houeta/offerhunt/internal/repository"
	"github.com/gin-gonic/gin"
)

type searchItem struct {
	ID         int64     `json:"id"`
	Store      string    `json:"store"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Price      float64   `json:"price"`
	CapturedAt time.Time `json:"capturedAt"`
}

type searchResponse struct {
	Query string       `json:"query"`
	Count int          `json:"count"`
	Items []searchItem `json:"items"`
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.ErrorContext(c.Request.Context(), "Store ping failed", "op", "api.Health", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Search returns the stored products matching q, cheapest first. With refresh=true the sources
// are searched live first; source=<name> limits that live search to one source.
func (h *Handler) Search(c *gin.Context) {
	const op = "api.Search"
	ctx := c.Request.Context()

	query := strings.TrimSpace(c.Query("q"))
	limit, ok := intParam(c, "limit")
	if !ok {
		return
	}

	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q is required with refresh"})
			return
		}
		report, err := h.runner.Run(ctx, models.RunRequest{
			Keyword: query,
			Origin:  models.OriginWeb,
			Trigger: models.TriggerSearch,
			Source:  strings.TrimSpace(c.Query("source")),
		})
		if err != nil {
			if errors.Is(err, parser.ErrUnknownSource) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
				return
			}
			h.internalError(c, op, err)
			return
		}
		h.log.InfoContext(ctx, "Live search finished", "op", op, "query", query, "products", len(report.ProductIDs))
	}

	results, err := h.store.Search(ctx, query, limit)
	if err != nil {
		h.internalError(c, op, err)
		return
	}

	resp := searchResponse{Query: query, Count: len(results), Items: make([]searchItem, 0, len(results))}
	for _, r := range results {
		resp.Items = append(resp.Items, searchItem{
			ID:         r.Product.ID,
			Store:      r.Latest.Store,
			Name:       r.Product.Name,
			URL:        r.Product.URL,
			ImageURL:   r.Product.ImageURL,
			Price:      r.Latest.Amount,
			CapturedAt: r.Latest.CapturedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// ListProducts returns the products surfaced on the public feed with their history.
func (h *Handler) ListProducts(c *gin.Context) {
	skip, ok := intParam(c, "skip")
	if !ok {
		return
	}
	limit, ok := intParam(c, "limit")
	if !ok {
		return
	}

	products, err := h.store.ListProducts(c.Request.Context(), models.ProductFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Origin: models.OriginWeb,
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		h.internalError(c, "api.ListProducts", err)
		return
	}
	if products == nil {
		products = []models.ProductHistory{}
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) PriceHistory(c *gin.Context) {
	const op = "api.PriceHistory"
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if _, err = h.store.GetProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.internalError(c, op, err)
		return
	}

	history, err := h.store.PriceHistory(ctx, id)
	if err != nil {
		h.internalError(c, op, err)
		return
	}
	if history == nil {
		history = []models.PriceSnapshot{}
	}

	c.JSON(http.StatusOK, history)
}

// internalError logs err and answers with a body that does not expose it.
func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.log.ErrorContext(c.Request.Context(), "Request failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// intParam reads an optional non-negative integer query parameter, answering 400 when malformed.
func intParam(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

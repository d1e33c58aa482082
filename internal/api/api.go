// Package api serves the read-only HTTP API over the price store.
package api

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/Houeta/offerhunt/internal/metrics"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/services/ingest"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is the read side of the price store.
type Store interface {
	Ping(ctx context.Context) error
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.ProductHistory, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	PriceHistory(ctx context.Context, productID int64) ([]models.PriceSnapshot, error)
}

type Handler struct {
	log     *slog.Logger
	store   Store
	runner  ingest.Runner
	metrics *metrics.Metrics
}

func NewHandler(log *slog.Logger, store Store, runner ingest.Runner, m *metrics.Metrics) *Handler {
	return &Handler{log: log, store: store, runner: runner, metrics: m}
}

// NewRouter wires the routes, the middleware and the metrics endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.observe(), cors.New(corsConfig(origins)))

	r.GET("/health", h.Health)
	r.GET("/search", h.Search)
	r.GET("/products", h.ListProducts)
	r.GET("/products/:id/history", h.PriceHistory)
	r.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// observe logs every request and records its metrics.
func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		if h.metrics != nil {
			h.metrics.RecordRequest(c.Request.Method, endpoint, status, elapsed)
		}
		h.log.DebugContext(
			c.Request.Context(),
			"HTTP request",
			"method", c.Request.Method,
			"endpoint", endpoint,
			"status", status,
			"elapsed", elapsed,
		)
	}
}

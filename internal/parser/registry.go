package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Houeta/offerhunt/internal/config"
	"github.com/Houeta/offerhunt/internal/models"
)

// Adapter kinds accepted in the source registry.
const (
	KindSelector = "selector"
	KindText     = "text"
)

var ErrUnknownSource = errors.New("unknown source")

// Registry holds the configured sources in declaration order.
type Registry struct {
	sources []Source
	byName  map[string]Source
}

// NewRegistry builds one adapter per configuration entry.
func NewRegistry(log *slog.Logger, cfgs []config.Source, matcher PriceMatcher) (*Registry, error) {
	reg := &Registry{byName: make(map[string]Source, len(cfgs))}

	for i, cfg := range cfgs {
		src, err := build(log, cfg, matcher)
		if err != nil {
			return nil, fmt.Errorf("source #%d (%q): %w", i, cfg.Name, err)
		}

		key := strings.ToLower(cfg.Name)
		if _, exists := reg.byName[key]; exists {
			return nil, fmt.Errorf("source #%d: source with name %q already exists", i, cfg.Name)
		}

		reg.byName[key] = src
		reg.sources = append(reg.sources, src)
		log.Debug("Registered source", "name", cfg.Name, "kind", cfg.Kind, "strategy", cfg.Strategy)
	}

	return reg, nil
}

// Sources returns every registered source.
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Lookup finds a source by case-insensitive name.
func (r *Registry) Lookup(name string) (Source, error) {
	src, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return src, nil
}

func build(log *slog.Logger, cfg config.Source, matcher PriceMatcher) (Source, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("source name cannot be empty")
	}
	if cfg.SearchURL == "" && cfg.CatalogURL == "" {
		return nil, errors.New("either search_url or catalog_url is required")
	}
	if cfg.SearchURL != "" && !strings.Contains(cfg.SearchURL, "{query}") {
		return nil, errors.New("search_url must contain the {query} placeholder")
	}
	if len(cfg.Selectors.Card) == 0 {
		return nil, errors.New("at least one card selector is required")
	}

	strategy := models.FetchStrategy(strings.ToLower(cfg.Strategy))
	switch strategy {
	case "":
		strategy = models.StrategyStatic
	case models.StrategyStatic, models.StrategyRendered:
	default:
		return nil, fmt.Errorf("unknown fetch strategy %q", cfg.Strategy)
	}

	switch strings.ToLower(cfg.Kind) {
	case "", KindSelector:
		if cfg.Selectors.Name == "" || cfg.Selectors.Price == "" {
			return nil, errors.New("selector sources need name and price selectors")
		}
		return NewSelectorAdapter(log, cfg, strategy), nil
	case KindText:
		if matcher == nil {
			return nil, errors.New("text sources need a price matcher")
		}
		return NewTextAdapter(log, cfg, strategy, matcher), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// Package fetcher retrieves source pages using the strategy each source declares.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"golang.org/x/time/rate"
)

var (
	ErrStatus              = errors.New("unexpected status code")
	ErrInvalidURL          = errors.New("invalid target url")
	ErrUnsupportedStrategy = errors.New("unsupported fetch strategy")
	ErrNoRenderer          = errors.New("rendered strategy is not available")
)

// FetchError is returned for every failed fetch. It is recoverable at the source level.
type FetchError struct {
	Source     string
	URL        string
	Strategy   models.FetchStrategy
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s %s (%s): status %d: %v", e.Source, e.URL, e.Strategy, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s %s (%s): %v", e.Source, e.URL, e.Strategy, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch was cut by its deadline.
func (e *FetchError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Renderer loads a page in a headless browser and returns the resulting document HTML.
type Renderer interface {
	Render(ctx context.Context, target models.FetchTarget) ([]byte, error)
}

type Options struct {
	Timeout        time.Duration // Timeout bounds a static fetch.
	RenderTimeout  time.Duration // RenderTimeout bounds a rendered fetch.
	UserAgent      string
	AcceptLanguage string
	HostRate       float64 // HostRate is requests per second per host; zero disables the limiter.
	MaxBodyBytes   int64
}

// DefaultOptions are used for zero fields in the options passed to New.
func DefaultOptions() Options {
	return Options{
		Timeout:        15 * time.Second,
		RenderTimeout:  45 * time.Second,
		UserAgent:      "Mozilla/5.0 (compatible; OfferHunt/1.0)",
		AcceptLanguage: "es-419,es;q=0.9",
		MaxBodyBytes:   8 << 20,
	}
}

// Executor runs fetches. Each call is independent; the only shared state is the per-host limiter.
type Executor struct {
	log      *slog.Logger
	client   *http.Client
	renderer Renderer
	opts     Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates an Executor. A nil renderer disables the rendered strategy.
func New(log *slog.Logger, client *http.Client, renderer Renderer, opts Options) *Executor {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = def.RenderTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = def.AcceptLanguage
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = def.MaxBodyBytes
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Executor{
		log:      log,
		client:   client,
		renderer: renderer,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch retrieves target under its own deadline. Failures are always *FetchError.
func (e *Executor) Fetch(ctx context.Context, source string, target models.FetchTarget) (*models.Page, error) {
	const op = "fetcher.Fetch"
	log := e.log.With("op", op, "source", source, "url", target.URL, "strategy", target.Strategy)

	fail := func(status int, err error) error {
		return &FetchError{Source: source, URL: target.URL, Strategy: target.Strategy, StatusCode: status, Err: err}
	}

	u, err := url.Parse(target.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fail(0, ErrInvalidURL)
	}

	timeout := e.opts.Timeout
	if target.Strategy == models.StrategyRendered {
		timeout = e.opts.RenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err = e.wait(ctx, u.Host); err != nil {
		return nil, fail(0, fmt.Errorf("politeness wait: %w", err))
	}

	start := time.Now()
	var body []byte

	switch target.Strategy {
	case models.StrategyStatic, "":
		var status int
		body, status, err = e.fetchStatic(ctx, log, target.URL)
		if err != nil {
			return nil, fail(status, err)
		}
	case models.StrategyRendered:
		if e.renderer == nil {
			return nil, fail(0, ErrNoRenderer)
		}
		body, err = e.renderer.Render(ctx, target)
		if err != nil {
			return nil, fail(0, err)
		}
	default:
		return nil, fail(0, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, target.Strategy))
	}

	log.DebugContext(ctx, "Page fetched", "bytes", len(body), "elapsed", time.Since(start))

	return &models.Page{URL: target.URL, HTML: body, FetchedAt: time.Now().UTC()}, nil
}

// wait blocks until host may be requested again or ctx is done.
func (e *Executor) wait(ctx context.Context, host string) error {
	if e.opts.HostRate <= 0 {
		return nil
	}

	e.mu.Lock()
	lim, ok := e.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(e.opts.HostRate), 1)
		e.limiters[host] = lim
	}
	e.mu.Unlock()

	return lim.Wait(ctx)
}

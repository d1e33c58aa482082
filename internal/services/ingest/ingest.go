// Package ingest runs the fetch, extract, filter and persist pipeline over every configured source.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/offerhunt/internal/metrics"
	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/parser"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Fetcher retrieves the page a source asked for.
type Fetcher interface {
	Fetch(ctx context.Context, source string, target models.FetchTarget) (*models.Page, error)
}

// Recorder persists one accepted listing.
type Recorder interface {
	RecordObservation(ctx context.Context, obs models.Observation) (models.Recorded, error)
}

// Runner is what the callers of a run depend on.
type Runner interface {
	// Run executes one ingestion run. It fails only for an invalid request; source failures are
	// reported in the returned RunReport.
	Run(ctx context.Context, req models.RunRequest) (*models.RunReport, error)
}

// SourceLookup resolves a source by name, failing with parser.ErrUnknownSource.
type SourceLookup interface {
	Lookup(name string) (parser.Source, error)
}

type Options struct {
	// Concurrency caps how many sources are processed at once.
	Concurrency int
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Lookup serves requests naming a single source. Without it such requests are rejected.
	Lookup SourceLookup
}

// Coordinator drives ingestion runs. Runs are independent; concurrent runs only meet at the store.
type Coordinator struct {
	log         *slog.Logger
	sources     []parser.Source
	fetcher     Fetcher
	matcher     parser.PriceMatcher
	store       Recorder
	metrics     *metrics.Metrics
	lookup      SourceLookup
	concurrency int
}

var _ Runner = (*Coordinator)(nil)

// NewCoordinator creates a new Coordinator instance.
func NewCoordinator(
	log *slog.Logger,
	sources []parser.Source,
	fetcher Fetcher,
	matcher parser.PriceMatcher,
	store Recorder,
	opts Options,
) *Coordinator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Coordinator{
		log:         log,
		sources:     sources,
		fetcher:     fetcher,
		matcher:     matcher,
		store:       store,
		metrics:     opts.Metrics,
		lookup:      opts.Lookup,
		concurrency: opts.Concurrency,
	}
}

// Run processes every source, or the one the request names, and returns what the run touched.
func (c *Coordinator) Run(ctx context.Context, req models.RunRequest) (*models.RunReport, error) {
	const op = "ingest.Run"

	if err := req.Origin.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sources, err := c.selectSources(req.Source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &models.RunReport{
		ID:        uuid.New(),
		Request:   req,
		StartedAt: time.Now().UTC(),
		Sources:   make([]models.SourceReport, len(sources)),
	}
	log := c.log.With(
		"op", op,
		"run_id", report.ID.String(),
		"trigger", req.Trigger,
		"keyword", req.Keyword,
		"origin", req.Origin,
	)
	log.InfoContext(ctx, "Run started", "sources", len(sources))

	touched := make([][]int64, len(sources))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			report.Sources[i], touched[i] = c.runSource(ctx, log, src, req)
			return nil
		})
	}
	_ = g.Wait() // sources never return errors, failures live in their reports

	seen := make(map[int64]struct{})
	for _, ids := range touched {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			report.ProductIDs = append(report.ProductIDs, id)
		}
	}

	report.FinishedAt = time.Now().UTC()
	if c.metrics != nil {
		c.metrics.RecordRun(report)
	}

	log.InfoContext(
		ctx,
		"Run finished",
		"products", len(report.ProductIDs),
		"failed_sources", len(report.Failed()),
		"elapsed", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, nil
}

func (c *Coordinator) selectSources(name string) ([]parser.Source, error) {
	if name == "" {
		return c.sources, nil
	}
	if c.lookup == nil {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnknownSource, name)
	}

	src, err := c.lookup.Lookup(name)
	if err != nil {
		return nil, err
	}
	return []parser.Source{src}, nil
}

// runSource walks one source through the stages. Failures are recorded in the returned report.
func (c *Coordinator) runSource(
	ctx context.Context,
	runLog *slog.Logger,
	src parser.Source,
	req models.RunRequest,
) (models.SourceReport, []int64) {
	rep := models.SourceReport{Source: src.Name(), Stage: models.StagePending}
	log := runLog.With("source", src.Name())

	fail := func(err error) (models.SourceReport, []int64) {
		rep.Err = err
		log.WarnContext(ctx, "Source failed", "stage", rep.Stage, "error", err)
		return rep, nil
	}

	target, err := src.Target(req.Keyword)
	if errors.Is(err, parser.ErrNoTarget) {
		rep.Skipped = true
		log.DebugContext(ctx, "Source has nothing to fetch for this request")
		return rep, nil
	}
	if err != nil {
		return fail(err)
	}

	// 1. Fetch
	rep.Stage = models.StageFetching
	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, src.Name(), target)
	if c.metrics != nil {
		c.metrics.RecordFetch(src.Name(), target.Strategy, time.Since(start))
	}
	if err != nil {
		return fail(err)
	}

	// 2. Extract
	rep.Stage = models.StageExtracting
	listings, err := src.Extract(ctx, page)
	if err != nil {
		return fail(err)
	}
	rep.Listings = len(listings)

	// 3. Filter
	rep.Stage = models.StageFiltering
	accepted := make([]models.Observation, 0, len(listings))
	for _, l := range listings {
		amount, ok := c.matcher.Normalize(l.PriceText)
		if !ok {
			rep.RejectedPrice++
			c.count(src.Name(), metrics.OutcomeRejectedPrice)
			log.DebugContext(ctx, "Rejected price", "name", l.Name, "price_text", l.PriceText)
			continue
		}
		if reason := CheckName(l.Name); reason != "" {
			rep.RejectedQuality++
			c.count(src.Name(), metrics.OutcomeRejectedQuality)
			log.DebugContext(ctx, "Rejected name", "name", l.Name, "reason", reason)
			continue
		}
		if target.KeywordGuard && !MatchesKeyword(l.Name, req.Keyword) {
			rep.RejectedKeyword++
			c.count(src.Name(), metrics.OutcomeRejectedKeyword)
			continue
		}

		accepted = append(accepted, models.Observation{
			Product: models.ProductInput{URL: l.URL, Name: l.Name, ImageURL: l.ImageURL, Origin: req.Origin},
			Amount:  amount,
			Store:   src.Name(),
		})
	}

	// 4. Persist
	rep.Stage = models.StagePersisting
	ids := make([]int64, 0, len(accepted))
	for _, obs := range accepted {
		rec, err := c.store.RecordObservation(ctx, obs)
		if err != nil {
			rep.StoreErrors++
			c.count(src.Name(), metrics.OutcomeStoreError)
			log.ErrorContext(ctx, "Failed to record observation", "url", obs.Product.URL, "error", err)
			continue
		}
		rep.Accepted++
		c.count(src.Name(), metrics.OutcomeAccepted)
		ids = append(ids, rec.ProductID)
	}

	rep.Stage = models.StageDone
	log.InfoContext(
		ctx,
		"Source done",
		"listings", rep.Listings,
		"accepted", rep.Accepted,
		"rejected_price", rep.RejectedPrice,
		"rejected_quality", rep.RejectedQuality,
		"rejected_keyword", rep.RejectedKeyword,
		"store_errors", rep.StoreErrors,
	)

	return rep, ids
}

func (c *Coordinator) count(source, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordListing(source, outcome)
	}
}

// Package scheduler triggers the periodic catalog refresh and alert sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/services/ingest"
	"github.com/Houeta/offerhunt/internal/services/tracker"
)

const defaultInterval = 6 * time.Hour

// Sweeper checks the stored alerts.
type Sweeper interface {
	Sweep(ctx context.Context, notifier tracker.Notifier) (int, error)
}

type Scheduler struct {
	log           *slog.Logger
	runner        ingest.Runner
	sweeper       Sweeper
	notifier      tracker.Notifier
	interval      time.Duration
	alertInterval time.Duration
}

// New creates a new Scheduler. A nil notifier disables the alert sweep.
func New(
	log *slog.Logger,
	runner ingest.Runner,
	sweeper Sweeper,
	notifier tracker.Notifier,
	interval, alertInterval time.Duration,
) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		log:           log,
		runner:        runner,
		sweeper:       sweeper,
		notifier:      notifier,
		interval:      interval,
		alertInterval: alertInterval,
	}
}

// Run refreshes the catalog once, then on every tick, until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	const op = "scheduler.Run"
	log := s.log.With("op", op)

	log.InfoContext(ctx, "Scheduler started", "interval", s.interval, "alert_interval", s.alertInterval)

	s.refresh(ctx, log)

	catalog := time.NewTicker(s.interval)
	defer catalog.Stop()

	var sweepC <-chan time.Time
	if s.notifier != nil && s.alertInterval > 0 {
		sweep := time.NewTicker(s.alertInterval)
		defer sweep.Stop()
		sweepC = sweep.C
	}

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "Scheduler stopped")
			return
		case <-catalog.C:
			s.refresh(ctx, log)
		case <-sweepC:
			s.sweep(ctx, log)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context, log *slog.Logger) {
	report, err := s.runner.Run(ctx, models.RunRequest{Origin: models.OriginBot, Trigger: models.TriggerSchedule})
	if err != nil {
		log.ErrorContext(ctx, "Catalog refresh failed", "error", err)
		return
	}
	log.InfoContext(ctx, "Catalog refreshed", "products", len(report.ProductIDs), "failed_sources", len(report.Failed()))
}

func (s *Scheduler) sweep(ctx context.Context, log *slog.Logger) {
	sent, err := s.sweeper.Sweep(ctx, s.notifier)
	if err != nil {
		log.ErrorContext(ctx, "Alert sweep failed", "error", err)
		return
	}
	log.DebugContext(ctx, "Alert sweep done", "sent", sent)
}

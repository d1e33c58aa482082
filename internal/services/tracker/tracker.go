// Package tracker manages the per-chat keyword alerts and checks them against stored prices.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/services/ingest"
)

const maxKeywordRunes = 100

var (
	ErrEmptyKeyword   = errors.New("keyword cannot be empty")
	ErrKeywordTooLong = errors.New("keyword is too long")
	ErrInvalidTarget  = errors.New("target price must be positive")
)

// Store is the persistence the tracker needs.
type Store interface {
	SetAlert(ctx context.Context, alert models.TrackingAlert) error
	GetAlert(ctx context.Context, chatID int64) (models.TrackingAlert, error)
	DeleteAlert(ctx context.Context, chatID int64) error
	ListAlerts(ctx context.Context) ([]models.TrackingAlert, error)
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// Notifier delivers an alert match to its chat.
type Notifier interface {
	Notify(ctx context.Context, alert models.TrackingAlert, match models.SearchResult) error
}

type Tracker struct {
	log    *slog.Logger
	store  Store
	runner ingest.Runner
}

// New creates a new Tracker instance.
func New(log *slog.Logger, store Store, runner ingest.Runner) *Tracker {
	return &Tracker{log: log, store: store, runner: runner}
}

// Track replaces the chat's alert, runs a fresh search for the keyword and returns the
// best stored match, or nil when nothing matches yet.
func (t *Tracker) Track(
	ctx context.Context,
	chatID int64,
	keyword string,
	target *float64,
) (*models.SearchResult, error) {
	const op = "tracker.Track"
	log := t.log.With("op", op, "chat_id", chatID)

	keyword = strings.Join(strings.Fields(keyword), " ")
	switch {
	case keyword == "":
		return nil, ErrEmptyKeyword
	case utf8.RuneCountInString(keyword) > maxKeywordRunes:
		return nil, ErrKeywordTooLong
	case target != nil && *target <= 0:
		return nil, ErrInvalidTarget
	}

	if err := t.store.SetAlert(ctx, models.TrackingAlert{ChatID: chatID, Keyword: keyword, TargetPrice: target}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.InfoContext(ctx, "Alert saved", "keyword", keyword)

	report, err := t.runner.Run(ctx, models.RunRequest{
		Keyword: keyword,
		Origin:  models.OriginBot,
		Trigger: models.TriggerChat,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.DebugContext(ctx, "Chat run finished", "products", len(report.ProductIDs), "failed_sources", len(report.Failed()))

	return t.BestMatch(ctx, keyword)
}

// BestMatch returns the cheapest stored product whose name contains keyword, or nil.
func (t *Tracker) BestMatch(ctx context.Context, keyword string) (*models.SearchResult, error) {
	const op = "tracker.BestMatch"

	results, err := t.store.Search(ctx, keyword, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(results) == 0 {
		return nil, nil //nolint:nilnil // no match is not an error
	}

	return &results[0], nil
}

// Current returns the chat's alert.
func (t *Tracker) Current(ctx context.Context, chatID int64) (models.TrackingAlert, error) {
	alert, err := t.store.GetAlert(ctx, chatID)
	if err != nil {
		return models.TrackingAlert{}, fmt.Errorf("tracker.Current: %w", err)
	}
	return alert, nil
}

// Clear removes the chat's alert.
func (t *Tracker) Clear(ctx context.Context, chatID int64) error {
	if err := t.store.DeleteAlert(ctx, chatID); err != nil {
		return fmt.Errorf("tracker.Clear: %w", err)
	}
	t.log.InfoContext(ctx, "Alert cleared", "op", "tracker.Clear", "chat_id", chatID)
	return nil
}

// Sweep refreshes every alert's keyword and notifies the chats whose best match meets their
// target. It returns the number of notifications sent.
func (t *Tracker) Sweep(ctx context.Context, notifier Notifier) (int, error) {
	const op = "tracker.Sweep"
	log := t.log.With("op", op)

	alerts, err := t.store.ListAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, alert := range alerts {
		if ctx.Err() != nil {
			return sent, fmt.Errorf("%s: %w", op, ctx.Err())
		}

		if _, err = t.runner.Run(ctx, models.RunRequest{
			Keyword: alert.Keyword,
			Origin:  models.OriginBot,
			Trigger: models.TriggerAlert,
		}); err != nil {
			log.ErrorContext(ctx, "Failed to refresh alert keyword", "chat_id", alert.ChatID, "error", err)
			continue
		}

		match, err := t.BestMatch(ctx, alert.Keyword)
		if err != nil {
			log.ErrorContext(ctx, "Failed to look up alert", "chat_id", alert.ChatID, "error", err)
			continue
		}
		if match == nil || !alert.Accepts(match.Latest.Amount) {
			continue
		}

		if err = notifier.Notify(ctx, alert, *match); err != nil {
			log.WarnContext(ctx, "Failed to notify chat", "chat_id", alert.ChatID, "error", err)
			continue
		}
		sent++
	}

	log.InfoContext(ctx, "Alert sweep finished", "alerts", len(alerts), "sent", sent)
	return sent, nil
}

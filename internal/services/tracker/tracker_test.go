package tracker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/repository"
	"github.com/Houeta/offerhunt/internal/services/tracker"
	"github.com/Houeta/offerhunt/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*tracker.Tracker, *mocks.TrackerStore, *mocks.Runner) {
	t.Helper()

	store := mocks.NewTrackerStore(t)
	runner := mocks.NewRunner(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return tracker.New(logger, store, runner), store, runner
}

func result(name string, amount float64) models.SearchResult {
	return models.SearchResult{
		Product: models.Product{ID: 1, Name: name, URL: "https://shop.example/" + name},
		Latest:  models.PriceSnapshot{ProductID: 1, Amount: amount, Store: "Shop"},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

// =============================================================================
// Tests for Track
// =============================================================================

func TestTrack_Success(t *testing.T) {
	trk, store, runner := setup(t)
	ctx := t.Context()
	target := floatPtr(1500000)

	store.On("SetAlert", ctx, models.TrackingAlert{ChatID: 42, Keyword: "iphone 15", TargetPrice: target}).
		Return(nil).Once()
	runner.On("Run", ctx, models.RunRequest{Keyword: "iphone 15", Origin: models.OriginBot, Trigger: models.TriggerChat}).
		Return(&models.RunReport{ProductIDs: []int64{1}}, nil).Once()
	store.On("Search", ctx, "iphone 15", 1).
		Return([]models.SearchResult{result("iPhone 15", 1400000)}, nil).Once()

	match, err := trk.Track(ctx, 42, "  iphone   15 ", target)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "iPhone 15", match.Product.Name)
}

func TestTrack_NoMatch(t *testing.T) {
	trk, store, runner := setup(t)
	ctx := t.Context()

	store.On("SetAlert", ctx, mock.AnythingOfType("models.TrackingAlert")).Return(nil).Once()
	runner.On("Run", ctx, mock.AnythingOfType("models.RunRequest")).Return(&models.RunReport{}, nil).Once()
	store.On("Search", ctx, "zune", 1).Return(nil, nil).Once()

	match, err := trk.Track(ctx, 1, "zune", nil)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestTrack_InvalidInput(t *testing.T) {
	trk, _, _ := setup(t)

	_, err := trk.Track(t.Context(), 1, "   ", nil)
	require.ErrorIs(t, err, tracker.ErrEmptyKeyword)

	_, err = trk.Track(t.Context(), 1, strings.Repeat("x", 101), nil)
	require.ErrorIs(t, err, tracker.ErrKeywordTooLong)

	_, err = trk.Track(t.Context(), 1, "tv", floatPtr(0))
	require.ErrorIs(t, err, tracker.ErrInvalidTarget)
}

func TestTrack_Failures(t *testing.T) {
	t.Run("store fails", func(t *testing.T) {
		trk, store, _ := setup(t)
		store.On("SetAlert", mock.Anything, mock.Anything).Return(errors.New("db locked")).Once()

		_, err := trk.Track(t.Context(), 1, "tv", nil)
		require.ErrorContains(t, err, "tracker.Track: db locked")
	})

	t.Run("run rejected", func(t *testing.T) {
		trk, store, runner := setup(t)
		store.On("SetAlert", mock.Anything, mock.Anything).Return(nil).Once()
		runner.On("Run", mock.Anything, mock.Anything).Return(nil, models.ErrInvalidOrigin).Once()

		_, err := trk.Track(t.Context(), 1, "tv", nil)
		require.ErrorIs(t, err, models.ErrInvalidOrigin)
	})
}

// =============================================================================
// Tests for Current and Clear
// =============================================================================

func TestCurrent(t *testing.T) {
	trk, store, _ := setup(t)
	ctx := t.Context()

	store.On("GetAlert", ctx, int64(7)).Return(models.TrackingAlert{ChatID: 7, Keyword: "tv"}, nil).Once()
	store.On("GetAlert", ctx, int64(8)).Return(models.TrackingAlert{}, repository.ErrAlertNotFound).Once()

	alert, err := trk.Current(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "tv", alert.Keyword)

	_, err = trk.Current(ctx, 8)
	require.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestClear(t *testing.T) {
	trk, store, _ := setup(t)
	ctx := t.Context()

	store.On("DeleteAlert", ctx, int64(7)).Return(nil).Once()
	store.On("DeleteAlert", ctx, int64(8)).Return(repository.ErrAlertNotFound).Once()

	require.NoError(t, trk.Clear(ctx, 7))
	require.ErrorIs(t, trk.Clear(ctx, 8), repository.ErrAlertNotFound)
}

// =============================================================================
// Tests for Sweep
// =============================================================================

func TestSweep(t *testing.T) {
	trk, store, runner := setup(t)
	notifier := mocks.NewNotifier(t)
	ctx := t.Context()

	anyPrice := models.TrackingAlert{ChatID: 1, Keyword: "iphone"}
	cheap := models.TrackingAlert{ChatID: 2, Keyword: "galaxy", TargetPrice: floatPtr(1000000)}
	met := models.TrackingAlert{ChatID: 3, Keyword: "redmi", TargetPrice: floatPtr(1500000)}
	missing := models.TrackingAlert{ChatID: 4, Keyword: "zune"}
	broken := models.TrackingAlert{ChatID: 5, Keyword: "pixel"}

	store.On("ListAlerts", ctx).Return([]models.TrackingAlert{anyPrice, cheap, met, missing, broken}, nil).Once()
	runner.On("Run", ctx, mock.MatchedBy(func(req models.RunRequest) bool {
		return req.Origin == models.OriginBot && req.Trigger == models.TriggerAlert
	})).Return(&models.RunReport{}, nil).Times(5)

	iphone := result("iPhone 15", 6990000)
	redmi := result("Redmi Note 13", 1450000)
	store.On("Search", ctx, "iphone", 1).Return([]models.SearchResult{iphone}, nil).Once()
	store.On("Search", ctx, "galaxy", 1).Return([]models.SearchResult{result("Galaxy A15", 1390000)}, nil).Once()
	store.On("Search", ctx, "redmi", 1).Return([]models.SearchResult{redmi}, nil).Once()
	store.On("Search", ctx, "zune", 1).Return(nil, nil).Once()
	store.On("Search", ctx, "pixel", 1).Return(nil, errors.New("db locked")).Once()

	notifier.On("Notify", ctx, anyPrice, iphone).Return(nil).Once()
	notifier.On("Notify", ctx, met, redmi).Return(nil).Once()

	sent, err := trk.Sweep(ctx, notifier)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestSweep_NotifyFailureContinues(t *testing.T) {
	trk, store, runner := setup(t)
	notifier := mocks.NewNotifier(t)
	ctx := t.Context()

	first := models.TrackingAlert{ChatID: 1, Keyword: "tv"}
	second := models.TrackingAlert{ChatID: 2, Keyword: "tv"}
	match := result("Smart TV", 2000000)

	store.On("ListAlerts", ctx).Return([]models.TrackingAlert{first, second}, nil).Once()
	runner.On("Run", ctx, mock.Anything).Return(&models.RunReport{}, nil).Twice()
	store.On("Search", ctx, "tv", 1).Return([]models.SearchResult{match}, nil).Twice()
	notifier.On("Notify", ctx, first, match).Return(errors.New("bot was blocked by the user")).Once()
	notifier.On("Notify", ctx, second, match).Return(nil).Once()

	sent, err := trk.Sweep(ctx, notifier)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestSweep_ListFails(t *testing.T) {
	trk, store, _ := setup(t)
	store.On("ListAlerts", mock.Anything).Return(nil, errors.New("db closed")).Once()

	_, err := trk.Sweep(t.Context(), mocks.NewNotifier(t))
	require.ErrorContains(t, err, "tracker.Sweep: db closed")
}

func TestSweep_Canceled(t *testing.T) {
	trk, store, _ := setup(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	store.On("ListAlerts", ctx).Return([]models.TrackingAlert{{ChatID: 1, Keyword: "tv"}}, nil).Once()

	_, err := trk.Sweep(ctx, mocks.NewNotifier(t))
	require.ErrorIs(t, err, context.Canceled)
}

package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Houeta/offerhunt/internal/models"
	"github.com/Houeta/offerhunt/internal/services/scheduler"
	"github.com/Houeta/offerhunt/internal/services/tracker"
	"github.com/Houeta/offerhunt/test/mocks"
	"github.com/stretchr/testify/mock"
)

type countingSweeper struct {
	calls chan struct{}
}

func (c *countingSweeper) Sweep(_ context.Context, _ tracker.Notifier) (int, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return 0, nil
}

func TestRun_ImmediatePassAndStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := mocks.NewRunner(t)
	ctx, cancel := context.WithCancel(t.Context())

	ran := make(chan struct{}, 1)
	runner.On("Run", mock.Anything, models.RunRequest{Origin: models.OriginBot, Trigger: models.TriggerSchedule}).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		}).
		Return(&models.RunReport{}, nil)

	s := scheduler.New(logger, runner, &countingSweeper{calls: make(chan struct{}, 1)}, nil, time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("catalog refresh did not run immediately")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestRun_Ticks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := mocks.NewRunner(t)
	runner.On("Run", mock.Anything, mock.Anything).Return(&models.RunReport{}, nil)

	sweeper := &countingSweeper{calls: make(chan struct{}, 1)}
	s := scheduler.New(logger, runner, sweeper, mocks.NewNotifier(t), time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-sweeper.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("alert sweep did not tick")
	}

	runner.AssertNumberOfCalls(t, "Run", 1)
}

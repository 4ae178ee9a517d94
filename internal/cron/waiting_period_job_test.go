package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type fakeNotifier struct {
	lookback time.Duration
	limit    int
	examined int
	err      error
}

func (f *fakeNotifier) NotifyCompletedWaitingPeriods(_ context.Context, lookback time.Duration, limit int) (int, error) {
	f.lookback = lookback
	f.limit = limit
	return f.examined, f.err
}

func TestWaitingPeriodJobDefaults(t *testing.T) {
	notifier := &fakeNotifier{examined: 3}
	job, err := NewWaitingPeriodJob(WaitingPeriodJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Pets:   notifier,
	})
	if err != nil {
		t.Fatalf("NewWaitingPeriodJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if notifier.lookback != defaultWaitingPeriodLookback || notifier.limit != defaultWaitingPeriodBatch {
		t.Fatalf("unexpected window %s / %d", notifier.lookback, notifier.limit)
	}
}

func TestWaitingPeriodJobPropagatesErrors(t *testing.T) {
	job, err := NewWaitingPeriodJob(WaitingPeriodJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Pets:     &fakeNotifier{err: errors.New("db down")},
		Lookback: 48 * time.Hour,
		Batch:    10,
	})
	if err != nil {
		t.Fatalf("NewWaitingPeriodJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

const (
	defaultWaitingPeriodLookback = 7 * 24 * time.Hour
	defaultWaitingPeriodBatch    = 500
)

type waitingPeriodNotifier interface {
	NotifyCompletedWaitingPeriods(ctx context.Context, lookback time.Duration, limit int) (int, error)
}

// WaitingPeriodJobParams configure the carencia completion notifier.
type WaitingPeriodJobParams struct {
	Logger   *logger.Logger
	Pets     waitingPeriodNotifier
	Lookback time.Duration
	Batch    int
}

// NewWaitingPeriodJob queues a completion event for each approved pet whose
// waiting period ended within the lookback window. The lookback must cover
// at least one cron interval or completions can be missed.
func NewWaitingPeriodJob(params WaitingPeriodJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pets == nil {
		return nil, fmt.Errorf("pets service required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultWaitingPeriodLookback
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultWaitingPeriodBatch
	}
	return &waitingPeriodJob{logg: params.Logger, pets: params.Pets, lookback: lookback, batch: batch}, nil
}

type waitingPeriodJob struct {
	logg     *logger.Logger
	pets     waitingPeriodNotifier
	lookback time.Duration
	batch    int
}

func (j *waitingPeriodJob) Name() string { return "waiting-period-completion" }

func (j *waitingPeriodJob) Run(ctx context.Context) error {
	examined, err := j.pets.NotifyCompletedWaitingPeriods(ctx, j.lookback, j.batch)
	if err != nil {
		return fmt.Errorf("waiting period notifier: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"lookback":      j.lookback.String(),
		"pets_examined": examined,
	})
	if examined >= j.batch {
		j.logg.Warn(logCtx, "waiting period batch is full; remaining pets wait for the next cycle")
		return nil
	}
	j.logg.Info(logCtx, "waiting period completions queued")
	return nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultNotificationRetention = 90 * 24 * time.Hour
	defaultOutboxRetention       = 30 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// RetentionJobParams configure a job that purges rows older than Retention.
type RetentionJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Retention time.Duration
}

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob deletes every row older than now - retention in one transaction.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	purge     purgeFunc
	retention time.Duration
	now       func() time.Time
}

// NewNotificationCleanupJob purges member notifications past retention, read or not.
func NewNotificationCleanupJob(params RetentionJobParams, repo notificationsCleanupRepo) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", params, defaultNotificationRetention, repo.DeleteOlderThan)
}

// NewOutboxRetentionJob purges published outbox rows past retention.
func NewOutboxRetentionJob(params RetentionJobParams, repo outboxRetentionRepo) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	purge := func(_ context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.DeletePublishedBefore(tx, cutoff)
	}
	return newRetentionJob("outbox-retention", params, defaultOutboxRetention, purge)
}

func newRetentionJob(name string, params RetentionJobParams, fallback time.Duration, purge purgeFunc) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{
		name:      name,
		logg:      params.Logger,
		db:        params.DB,
		purge:     purge,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}

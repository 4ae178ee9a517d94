package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"gorm.io/gorm"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeNotificationRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeNotificationRepo) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

type fakeOutboxRepo struct {
	lastCutoff time.Time
	err        error
}

func (f *fakeOutboxRepo) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return 3, f.err
}

func testParams(retention time.Duration) RetentionJobParams {
	return RetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:        passthroughTx{},
		Retention: retention,
	}
}

func TestNotificationCleanupUsesConfiguredRetention(t *testing.T) {
	now := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{deleted: 42}
	job, err := NewNotificationCleanupJob(testParams(30*24*time.Hour), repo)
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job.(*retentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-30 * 24 * time.Hour); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected one purge, got %d", repo.called)
	}
	if job.Name() != "notification-cleanup" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestOutboxRetentionFallsBackToDefault(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRepo{}
	job, err := NewOutboxRetentionJob(testParams(0), repo)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job.(*retentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-defaultOutboxRetention); !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
}

func TestRetentionJobPropagatesErrors(t *testing.T) {
	job, err := NewNotificationCleanupJob(testParams(time.Hour), &fakeNotificationRepo{err: errors.New("boom")})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetentionJobRequiresRepository(t *testing.T) {
	if _, err := NewOutboxRetentionJob(testParams(time.Hour), nil); err == nil {
		t.Fatal("expected error for missing repository")
	}
}

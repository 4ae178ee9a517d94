package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker", Output: &bytes.Buffer{}})
}

func healthy() pinger { return pingFunc(func(context.Context) error { return nil }) }

func TestRunStopsWhenDependencyIsDown(t *testing.T) {
	var started atomic.Bool
	err := NewService(testLogger()).
		Depend("database", healthy()).
		Depend("redis", pingFunc(func(context.Context) error { return errors.New("connection refused") })).
		Consume("notifications", runFunc(func(context.Context) error { started.Store(true); return nil })).
		Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis not ready")
	assert.False(t, started.Load())
}

func TestRunCancelsSiblingsOnConsumerFailure(t *testing.T) {
	var siblingStopped atomic.Bool
	err := NewService(testLogger()).
		Depend("pubsub", healthy()).
		Consume("identity", runFunc(func(context.Context) error { return errors.New("subscription deleted") })).
		Consume("notifications", runFunc(func(ctx context.Context) error {
			<-ctx.Done()
			siblingStopped.Store(true)
			return ctx.Err()
		})).
		Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity consumer")
	assert.True(t, siblingStopped.Load())
}

func TestRunTreatsCancellationAsCleanStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := NewService(testLogger()).
		Consume("notifications", runFunc(func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		})).
		Run(ctx)
	assert.NoError(t, err)
}

func TestRunRequiresConsumers(t *testing.T) {
	assert.Error(t, NewService(testLogger()).Run(context.Background()))
}

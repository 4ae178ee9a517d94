package logger

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
)

const sentryFlushTimeout = 2 * time.Second

var reporting atomic.Bool

// InitSentry configures error reporting for a binary. With no DSN it is a
// no-op and the returned flush does nothing.
func InitSentry(cfg config.SentryConfig, env, serviceName string) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		ServerName:       serviceName,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return func() {}, err
	}
	reporting.Store(true)
	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

func report(ctx context.Context, msg string, err error) {
	if !reporting.Load() {
		return
	}
	if err == nil {
		err = errors.New(msg)
	}
	hub := sentry.CurrentHub()
	if ctx != nil && sentry.HasHubOnContext(ctx) {
		hub = sentry.GetHubFromContext(ctx)
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("log_message", msg)
		hub.CaptureException(err)
	})
}

// Package bootstrap is the shared process lifecycle of the binaries under
// cmd/: environment and config loading, the service logger and Sentry, a
// signal-aware context, and ordered teardown of whatever the binary opened.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/instance"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/metrics"
	"github.com/clubpataamiga/pataamiga-backend/pkg/migrate"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pubsub"
	"github.com/clubpataamiga/pataamiga-backend/pkg/redis"
	"github.com/clubpataamiga/pataamiga-backend/pkg/storage/gcs"
)

const metricsShutdownTimeout = 5 * time.Second

type closer struct {
	name string
	fn   func() error
}

// Runtime carries the loaded config and logger into a binary's run function
// and remembers what has to be closed when it returns.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger

	closers []closer
}

// Main runs fn and returns the process exit code. A context.Canceled error
// from fn counts as a clean shutdown.
func Main(service string, fn func(ctx context.Context, rt *Runtime) error) int {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return 1
	}
	cfg.Service.Kind = service

	rt := &Runtime{Service: service, Config: cfg, Logger: logger.ForService(service, cfg.App)}
	return rt.run(fn)
}

func (rt *Runtime) run(fn func(ctx context.Context, rt *Runtime) error) int {
	flushSentry, err := logger.InitSentry(rt.Config.Sentry, rt.Config.App.Env, rt.Service)
	if err != nil {
		rt.Logger.Error(context.Background(), "failed to init sentry", err)
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": rt.Service,
	})

	runErr := fn(ctx, rt)
	if err := rt.Close(); err != nil {
		rt.Logger.Error(ctx, "teardown failed", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		rt.Logger.Error(ctx, rt.Service+" stopped unexpectedly", runErr)
		return 1
	}
	rt.Logger.Info(ctx, rt.Service+" shut down")
	return 0
}

// OnClose registers fn to run at teardown. Closers run last-registered first.
func (rt *Runtime) OnClose(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close runs every registered closer once and joins their errors.
func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	rt.closers = nil
	return errs
}

// Database connects to Postgres and applies embedded migrations when the
// environment asks for it.
func (rt *Runtime) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.OnClose("database", client.Close)
	if err := migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (rt *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	rt.OnClose("redis", client.Close)
	return client, nil
}

func (rt *Runtime) Storage(ctx context.Context) (*gcs.Client, error) {
	client, err := gcs.NewClient(ctx, rt.Config.GCS, rt.Config.GCP, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap gcs: %w", err)
	}
	rt.OnClose("gcs", client.Close)
	return client, nil
}

func (rt *Runtime) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap pubsub: %w", err)
	}
	rt.OnClose("pubsub", client.Close)
	return client, nil
}

// ServeMetrics exposes reg on the app port in the background and shuts the
// listener down at teardown.
func (rt *Runtime) ServeMetrics(ctx context.Context, reg *prometheus.Registry) {
	server := metrics.NewServer(":"+rt.Config.App.Port, reg)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger.Error(ctx, "metrics server stopped", err)
		}
	}()
	rt.OnClose("metrics server", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

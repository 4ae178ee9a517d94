package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clubpataamiga/pataamiga-backend/internal/bootstrap"
	"github.com/clubpataamiga/pataamiga-backend/internal/cron"
	"github.com/clubpataamiga/pataamiga-backend/internal/notifications"
	"github.com/clubpataamiga/pataamiga-backend/internal/pets"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/metrics"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/storage/gcs"
)

var (
	once = flag.Bool("once", false, "run a single cycle and exit (for external schedulers)")
	only = flag.String("jobs", "", "comma-separated job names to run; empty runs all")
)

func main() {
	flag.Parse()
	os.Exit(bootstrap.Main("cron-worker", run))
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg := rt.Config

	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	gcsClient, err := rt.Storage(ctx)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(cfg, rt.Logger, dbClient, gcsClient)
	if err != nil {
		return err
	}
	if jobs, err = jobs.Select(splitNames(*only)...); err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockName, cron.LockTTLFor(cfg.Cron.Interval))
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(promRegistry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"interval": cfg.Cron.Interval.String(),
		"jobs":     strings.Join(jobs.Names(), ","),
	})
	if *once {
		return service.RunOnce(ctx)
	}

	rt.ServeMetrics(ctx, promRegistry)
	rt.Logger.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, gcsClient *gcs.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	retention := cron.RetentionJobParams{Logger: logg, DB: dbClient}

	notificationJob, err := cron.NewNotificationCleanupJob(
		withRetention(retention, cfg.Cron.NotificationRetention),
		notifications.NewRepository(conn),
	)
	if err != nil {
		return nil, err
	}

	outboxJob, err := cron.NewOutboxRetentionJob(
		withRetention(retention, cfg.Outbox.Retention),
		outbox.NewRepository(conn),
	)
	if err != nil {
		return nil, err
	}

	uploadsSvc, err := uploads.NewService(gcsClient, cfg.Uploads)
	if err != nil {
		return nil, err
	}
	petsSvc, err := pets.NewService(
		pets.NewRepository(conn),
		dbClient,
		outbox.NewService(outbox.NewRepository(conn), logg),
		uploadsSvc,
		cfg.Membership,
	)
	if err != nil {
		return nil, err
	}
	waitingJob, err := cron.NewWaitingPeriodJob(cron.WaitingPeriodJobParams{
		Logger:   logg,
		Pets:     petsSvc,
		Lookback: cfg.Cron.WaitingPeriodLookback,
		Batch:    cfg.Cron.WaitingPeriodBatch,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(waitingJob, notificationJob, outboxJob)
}

func splitNames(raw string) []string {
	var names []string
	for name := range strings.SplitSeq(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func withRetention(params cron.RetentionJobParams, retention time.Duration) cron.RetentionJobParams {
	params.Retention = retention
	return params
}

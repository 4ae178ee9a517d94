package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clubpataamiga/pataamiga-backend/internal/bootstrap"
	"github.com/clubpataamiga/pataamiga-backend/pkg/metrics"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/registry"
)

func main() {
	os.Exit(bootstrap.Main("outbox-publisher", run))
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := rt.PubSub(ctx)
	if err != nil {
		return err
	}
	events, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Config:        rt.Config,
		Logger:        rt.Logger,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(promRegistry),
	})
	if err != nil {
		return err
	}
	rt.ServeMetrics(ctx, promRegistry)

	rt.Logger.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

package main

import (
	"context"
	"os"

	"github.com/clubpataamiga/pataamiga-backend/internal/ambassadors"
	"github.com/clubpataamiga/pataamiga-backend/internal/bootstrap"
	"github.com/clubpataamiga/pataamiga-backend/internal/communications"
	"github.com/clubpataamiga/pataamiga-backend/internal/consumers/identity"
	"github.com/clubpataamiga/pataamiga-backend/internal/members"
	"github.com/clubpataamiga/pataamiga-backend/internal/notifications"
	"github.com/clubpataamiga/pataamiga-backend/pkg/memberstack"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/idempotency"
)

func main() {
	os.Exit(bootstrap.Main("worker", run))
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	dbClient, err := rt.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := rt.PubSub(ctx)
	if err != nil {
		return err
	}
	memberstackClient, err := memberstack.NewClient(cfg.Memberstack)
	if err != nil {
		return err
	}
	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	comms, err := communications.NewServiceFromConfig(communications.NewRepository(conn), cfg, logg)
	if err != nil {
		return err
	}
	notificationConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repository:   notifications.NewRepository(conn),
		Members:      members.NewRepository(conn),
		Messenger:    comms,
		Subscription: pubsubClient.NotificationSubscription(),
		Idempotency:  claims,
		Logger:       logg,
	})
	if err != nil {
		return err
	}
	identityConsumer, err := identity.NewConsumer(
		pubsubClient.IdentitySubscription(),
		memberstackClient,
		ambassadors.NewRepository(conn),
		claims,
		logg,
		cfg.FeatureFlags.IdentitySync,
	)
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting worker")
	return NewService(logg).
		Depend("database", dbClient).
		Depend("redis", redisClient).
		Depend("pubsub", pubsubClient).
		Consume("notifications", notificationConsumer).
		Consume("identity", identityConsumer).
		Run(ctx)
}

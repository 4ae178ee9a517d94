package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clubpataamiga/pataamiga-backend/api/controllers"
	"github.com/clubpataamiga/pataamiga-backend/api/routes"
	"github.com/clubpataamiga/pataamiga-backend/internal/admins"
	"github.com/clubpataamiga/pataamiga-backend/internal/ambassadors"
	"github.com/clubpataamiga/pataamiga-backend/internal/auth"
	"github.com/clubpataamiga/pataamiga-backend/internal/bootstrap"
	"github.com/clubpataamiga/pataamiga-backend/internal/communications"
	"github.com/clubpataamiga/pataamiga-backend/internal/deadletters"
	"github.com/clubpataamiga/pataamiga-backend/internal/legal"
	"github.com/clubpataamiga/pataamiga-backend/internal/members"
	"github.com/clubpataamiga/pataamiga-backend/internal/notifications"
	"github.com/clubpataamiga/pataamiga-backend/internal/payouts"
	"github.com/clubpataamiga/pataamiga-backend/internal/pets"
	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/auth/session"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/memberstack"
	"github.com/clubpataamiga/pataamiga-backend/pkg/metrics"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(bootstrap.Main("api", run))
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
	gcsClient, err := rt.Storage(ctx)
	if err != nil {
		return err
	}
	memberstackClient, err := memberstack.NewClient(cfg.Memberstack)
	if err != nil {
		return err
	}
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	deps, err := buildServices(cfg, logg, dbClient, gcsClient, memberstackClient, sessionManager)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	if cfg.App.IsDev() {
		created, err := deps.Auth.Bootstrap(ctx, cfg.Bootstrap)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created != nil {
			logg.Info(logg.WithField(ctx, "email", created.Email), "bootstrap super admin created")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Config = cfg
	deps.Logger = logg
	deps.Redis = redisClient
	deps.Sessions = sessionManager
	deps.MemberVerifier = memberstackClient
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)
	deps.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	deps.Health = map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
		"gcs":      gcsClient,
	}

	// Cloud Run injects PORT.
	port := cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", server.Addr)
	logg.Info(ctx, "starting api server")
	return serve(ctx, server)
}

// serve blocks until the listener fails or ctx ends, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	gcsClient *gcs.Client,
	memberstackClient *memberstack.Client,
	sessionManager *session.Manager,
) (routes.Dependencies, error) {
	var deps routes.Dependencies
	conn := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	uploadsSvc, err := uploads.NewService(gcsClient, cfg.Uploads)
	if err != nil {
		return deps, err
	}
	membersSvc, err := members.NewService(members.NewRepository(conn), memberstackClient)
	if err != nil {
		return deps, err
	}
	petsSvc, err := pets.NewService(pets.NewRepository(conn), dbClient, publisher, uploadsSvc, cfg.Membership)
	if err != nil {
		return deps, err
	}
	referralsSvc, err := referrals.NewService(referrals.NewRepository(conn), dbClient, publisher)
	if err != nil {
		return deps, err
	}
	ambassadorsSvc, err := ambassadors.NewService(ambassadors.NewRepository(conn), dbClient, publisher, uploadsSvc, referralsSvc, cfg.Membership)
	if err != nil {
		return deps, err
	}
	payoutsSvc, err := payouts.NewService(payouts.NewRepository(conn), dbClient, publisher, referralsSvc)
	if err != nil {
		return deps, err
	}
	commsSvc, err := communications.NewServiceFromConfig(communications.NewRepository(conn), cfg, logg)
	if err != nil {
		return deps, err
	}
	legalSvc, err := legal.NewService(legal.NewRepository(conn), uploadsSvc)
	if err != nil {
		return deps, err
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return deps, err
	}
	deadLettersSvc, err := deadletters.NewService(outbox.NewDLQRepository(conn), logg)
	if err != nil {
		return deps, err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		Admins:         admins.NewRepository(conn),
		Sessions:       sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return deps, err
	}

	deps.Auth = authSvc
	deps.Members = membersSvc
	deps.Pets = petsSvc
	deps.Ambassadors = ambassadorsSvc
	deps.Referrals = referralsSvc
	deps.Payouts = payoutsSvc
	deps.Communications = commsSvc
	deps.Legal = legalSvc
	deps.Notifications = notificationsSvc
	deps.Uploads = uploadsSvc
	deps.DeadLetters = deadLettersSvc
	return deps, nil
}

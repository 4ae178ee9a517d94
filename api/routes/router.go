package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clubpataamiga/pataamiga-backend/api/controllers"
	"github.com/clubpataamiga/pataamiga-backend/api/middleware"
	"github.com/clubpataamiga/pataamiga-backend/internal/ambassadors"
	"github.com/clubpataamiga/pataamiga-backend/internal/auth"
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
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/metrics"
	pkgredis "github.com/clubpataamiga/pataamiga-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs: the
// idempotency replay cache and the login attempt counters.
type RedisStore interface {
	pkgredis.IdempotencyStore
	middleware.AttemptCounter
}

// Dependencies carries everything the router wires into handlers. Nil
// services answer 500; nil infrastructure disables the matching middleware.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger

	Health         map[string]controllers.Pinger
	Redis          RedisStore
	Sessions       session.AccessSessionChecker
	MemberVerifier middleware.TokenVerifier
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Auth           auth.Service
	Members        members.Service
	Pets           pets.Service
	Ambassadors    ambassadors.Service
	Referrals      referrals.Service
	Payouts        payouts.Service
	Communications communications.Service
	Legal          legal.Service
	Notifications  notifications.Service
	Uploads        uploads.Service
	DeadLetters    deadletters.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Sentry(),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	limiter := middleware.NewIPRateLimiter(
		cfg.PublicRateLimit.RequestsPerSecond,
		cfg.PublicRateLimit.Burst,
		cfg.PublicRateLimit.IdleTTL,
	)
	loginThrottle := middleware.LoginThrottle{
		Window:     cfg.AuthRateLimit.LoginWindow,
		PerIP:      cfg.AuthRateLimit.LoginIPLimit,
		PerAccount: cfg.AuthRateLimit.LoginEmailLimit,
	}
	maxUpload := cfg.Uploads.MaxBytes()
	replay := middleware.Idempotent{Store: deps.Redis, TTL: cfg.Idempotency.TTL, MaxBody: maxUpload, Logger: logg}
	criticalReplay := replay
	criticalReplay.TTL = cfg.Idempotency.CriticalTTL
	once, onceCritical := replay.Handler, criticalReplay.Handler

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, logg))
		r.Get("/ambassadors/availability", controllers.CheckAmbassadorAvailability(deps.Ambassadors, logg))
		r.Get("/referral-codes/{code}", controllers.ValidateReferralCode(deps.Ambassadors, logg))
		r.Get("/legal-documents", controllers.PublicLegalDocuments(deps.Legal, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, logg))
		r.Use(middleware.MemberAuth(deps.MemberVerifier, deps.Members, logg))

		r.Get("/me", controllers.GetMe(deps.Pets, deps.Ambassadors, logg))
		r.With(once).Post("/me/referral", controllers.RecordReferral(deps.Referrals, logg))
		r.With(once).Post("/uploads", controllers.Upload(deps.Uploads, maxUpload, logg))

		r.Route("/pets", func(r chi.Router) {
			r.With(once).Post("/", controllers.RegisterPet(deps.Pets, maxUpload, logg))
			r.Get("/", controllers.ListMyPets(deps.Pets, logg))
			r.Get("/{petId}", controllers.GetMyPet(deps.Pets, logg))
			r.Get("/{petId}/waiting-period", controllers.GetPetWaitingPeriod(deps.Pets, logg))
			r.With(onceCritical).Post("/{petId}/appeal", controllers.SubmitPetAppeal(deps.Pets, maxUpload, logg))
			r.With(once).Post("/{petId}/update", controllers.SubmitPetUpdate(deps.Pets, maxUpload, logg))
			r.Get("/{petId}/appeals", controllers.ListMyPetAppeals(deps.Pets, logg))
		})

		r.Route("/ambassadors", func(r chi.Router) {
			r.With(once).Post("/", controllers.ApplyAmbassador(deps.Ambassadors, maxUpload, logg))
			r.Get("/me", controllers.AmbassadorDashboard(deps.Ambassadors, logg))
			r.Get("/me/referrals", controllers.ListMyReferrals(deps.Ambassadors, deps.Referrals, logg))
			r.Get("/me/payouts", controllers.ListMyPayouts(deps.Ambassadors, deps.Payouts, logg))
			r.With(onceCritical).Post("/me/payouts", controllers.RequestPayout(deps.Ambassadors, deps.Payouts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.With(once).Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.With(once).Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/auth", func(r chi.Router) {
		r.With(loginThrottle.Handler(deps.Redis, logg)).Post("/login", controllers.AdminLogin(deps.Auth, logg))
		r.Post("/refresh", controllers.AdminRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AdminLogout(deps.Auth, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(enums.AdminRoleAdmin, logg))

		r.Get("/members", controllers.AdminListMembers(deps.Members, logg))
		r.Get("/members/{memberId}", controllers.AdminGetMember(deps.Members, logg))

		r.Route("/pets", func(r chi.Router) {
			r.Get("/", controllers.AdminListPets(deps.Pets, logg))
			r.Get("/{petId}", controllers.AdminGetPet(deps.Pets, logg))
			r.Post("/{petId}/status", controllers.AdminDecidePet(deps.Pets, logg))
			r.Post("/{petId}/messages", controllers.AdminMessagePet(deps.Pets, logg))
			r.Get("/{petId}/appeals", controllers.AdminListPetAppeals(deps.Pets, logg))
		})

		r.Route("/ambassadors", func(r chi.Router) {
			r.Get("/", controllers.AdminListAmbassadors(deps.Ambassadors, logg))
			r.Get("/{ambassadorId}", controllers.AdminGetAmbassador(deps.Ambassadors, logg))
			r.Patch("/{ambassadorId}", controllers.AdminPatchAmbassador(deps.Ambassadors, logg))
			r.With(middleware.RequireRole(enums.AdminRoleSuperAdmin, logg)).
				Delete("/{ambassadorId}", controllers.AdminDeleteAmbassador(deps.Ambassadors, logg))
		})

		r.Route("/referrals", func(r chi.Router) {
			r.Get("/", controllers.AdminListReferrals(deps.Referrals, logg))
			r.Post("/{referralId}/approve", controllers.AdminApproveReferral(deps.Referrals, logg))
			r.Post("/{referralId}/pay", controllers.AdminPayReferral(deps.Referrals, logg))
			r.Post("/{referralId}/cancel", controllers.AdminCancelReferral(deps.Referrals, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.AdminListPayouts(deps.Payouts, logg))
			r.Post("/{payoutId}/process", controllers.AdminProcessPayout(deps.Payouts, logg))
			r.Post("/{payoutId}/complete", controllers.AdminCompletePayout(deps.Payouts, logg))
			r.Post("/{payoutId}/fail", controllers.AdminFailPayout(deps.Payouts, logg))
		})

		r.Route("/comm-templates", func(r chi.Router) {
			r.Get("/", controllers.AdminListTemplates(deps.Communications, logg))
			r.Post("/", controllers.AdminCreateTemplate(deps.Communications, logg))
			r.Patch("/{templateId}", controllers.AdminUpdateTemplate(deps.Communications, logg))
			r.Delete("/{templateId}", controllers.AdminDeleteTemplate(deps.Communications, logg))
		})

		r.Post("/communications/send", controllers.AdminSendCommunication(deps.Communications, logg))
		r.Get("/communications/logs", controllers.AdminListCommunicationLogs(deps.Communications, logg))

		r.Route("/legal-documents", func(r chi.Router) {
			r.Get("/", controllers.AdminListLegalDocuments(deps.Legal, logg))
			r.Post("/", controllers.AdminCreateLegalDocument(deps.Legal, maxUpload, logg))
			r.Patch("/{documentId}", controllers.AdminUpdateLegalDocument(deps.Legal, maxUpload, logg))
			r.Delete("/{documentId}", controllers.AdminDeleteLegalDocument(deps.Legal, logg))
		})

		r.Route("/outbox/dead-letters", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.AdminRoleSuperAdmin, logg))
			r.Get("/", controllers.AdminListDeadLetters(deps.DeadLetters, logg))
			r.Post("/{eventId}/requeue", controllers.AdminRequeueDeadLetter(deps.DeadLetters, logg))
		})
	})

	return r
}

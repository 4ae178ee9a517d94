package config

const (
	EnvPrefix = "PATAAMIGA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "PATAAMIGA_APP_ENV"
	EnvPort   = "PATAAMIGA_APP_PORT"

	EnvDBDSN  = "PATAAMIGA_DB_DSN"
	EnvDBHost = "PATAAMIGA_DB_HOST"
	EnvDBUser = "PATAAMIGA_DB_USER"
	EnvDBName = "PATAAMIGA_DB_NAME"

	EnvRedisURL               = "PATAAMIGA_REDIS_URL"
	EnvJWTSecret              = "PATAAMIGA_JWT_SECRET"
	EnvJWTIssuer              = "PATAAMIGA_JWT_ISSUER"
	EnvJWTExpMins             = "PATAAMIGA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PATAAMIGA_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "PATAAMIGA_GCP_PROJECT_ID"
	EnvGCSBucket    = "PATAAMIGA_GCS_BUCKET_NAME"

	EnvPubSubDomainTopic        = "PATAAMIGA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubIdentitySub        = "PATAAMIGA_PUBSUB_IDENTITY_SUBSCRIPTION"
	EnvPubSubNotificationSub    = "PATAAMIGA_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvMemberstackSecretKey     = "PATAAMIGA_MEMBERSTACK_SECRET_KEY"
	EnvWaitingPeriodDays        = "PATAAMIGA_WAITING_PERIOD_DAYS"
	EnvReducedWaitingPeriodDays = "PATAAMIGA_REDUCED_WAITING_PERIOD_DAYS"
	EnvDefaultCommissionPercent = "PATAAMIGA_DEFAULT_COMMISSION_PERCENT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

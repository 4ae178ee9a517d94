package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App             AppConfig
	Service         ServiceConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	Password        PasswordConfig
	AuthRateLimit   AuthRateLimitConfig
	PublicRateLimit PublicRateLimitConfig
	CORS            CORSConfig
	FeatureFlags    FeatureFlagsConfig
	Eventing        EventingConfig
	Idempotency     IdempotencyConfig
	GCP             GCPConfig
	GCS             GCSConfig
	Uploads         UploadsConfig
	PubSub          PubSubConfig
	Outbox          OutboxConfig
	Memberstack     MemberstackConfig
	Sendgrid        SendgridConfig
	WhatsApp        WhatsAppConfig
	Sentry          SentryConfig
	Membership      MembershipConfig
	Cron            CronConfig
	Bootstrap       BootstrapConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Membership.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PATAAMIGA_APP_ENV" required:"true"`
	Port         string `envconfig:"PATAAMIGA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PATAAMIGA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PATAAMIGA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PATAAMIGA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"PATAAMIGA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PATAAMIGA_DB_DSN"`
	Driver string `envconfig:"PATAAMIGA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PATAAMIGA_DB_HOST"`
	LegacyPort     int    `envconfig:"PATAAMIGA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PATAAMIGA_DB_USER"`
	LegacyPassword string `envconfig:"PATAAMIGA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PATAAMIGA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PATAAMIGA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PATAAMIGA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PATAAMIGA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PATAAMIGA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PATAAMIGA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PATAAMIGA_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PATAAMIGA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PATAAMIGA_REDIS_ADDR"`
	Password     string        `envconfig:"PATAAMIGA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PATAAMIGA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PATAAMIGA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PATAAMIGA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PATAAMIGA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PATAAMIGA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PATAAMIGA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PATAAMIGA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PATAAMIGA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PATAAMIGA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PATAAMIGA_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PATAAMIGA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PATAAMIGA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PATAAMIGA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PATAAMIGA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PATAAMIGA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PATAAMIGA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"PATAAMIGA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"PATAAMIGA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

// PublicRateLimitConfig drives the in-process token bucket used on the
// unauthenticated and member route groups.
type PublicRateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"PATAAMIGA_RATE_LIMIT_RPS" default:"5"`
	Burst             int           `envconfig:"PATAAMIGA_RATE_LIMIT_BURST" default:"20"`
	IdleTTL           time.Duration `envconfig:"PATAAMIGA_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PATAAMIGA_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PATAAMIGA_AUTO_MIGRATE" default:"false"`
	// IdentitySync disables the Memberstack custom-field writes in the worker
	// when false (events are acked and logged).
	IdentitySync bool `envconfig:"PATAAMIGA_FEATURE_IDENTITY_SYNC" default:"true"`
}

// IdempotencyConfig sets how long member write responses stay replayable.
// Appeals and payout requests keep theirs for a week.
type IdempotencyConfig struct {
	TTL         time.Duration `envconfig:"PATAAMIGA_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"PATAAMIGA_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PATAAMIGA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PATAAMIGA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PATAAMIGA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PATAAMIGA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"PATAAMIGA_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"PATAAMIGA_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type UploadsConfig struct {
	MaxImageMB int `envconfig:"PATAAMIGA_UPLOAD_MAX_IMAGE_MB" default:"10"`
	MaxPDFMB   int `envconfig:"PATAAMIGA_UPLOAD_MAX_PDF_MB" default:"20"`
}

// MaxBytes returns the largest accepted multipart body.
func (u UploadsConfig) MaxBytes() int64 {
	largest := u.MaxImageMB
	if u.MaxPDFMB > largest {
		largest = u.MaxPDFMB
	}
	// room for two files plus form fields
	return int64(largest)*2*1024*1024 + 1024*1024
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"PATAAMIGA_PUBSUB_DOMAIN_TOPIC" required:"true"`
	IdentitySubscription     string `envconfig:"PATAAMIGA_PUBSUB_IDENTITY_SUBSCRIPTION" required:"true"`
	NotificationSubscription string `envconfig:"PATAAMIGA_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PATAAMIGA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PATAAMIGA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PATAAMIGA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"PATAAMIGA_OUTBOX_RETENTION" default:"720h"`
}

type MemberstackConfig struct {
	SecretKey string        `envconfig:"PATAAMIGA_MEMBERSTACK_SECRET_KEY" required:"true"`
	BaseURL   string        `envconfig:"PATAAMIGA_MEMBERSTACK_BASE_URL" default:"https://admin.memberstack.com"`
	Timeout   time.Duration `envconfig:"PATAAMIGA_MEMBERSTACK_TIMEOUT" default:"10s"`
	CacheTTL  time.Duration `envconfig:"PATAAMIGA_MEMBERSTACK_CACHE_TTL" default:"5m"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PATAAMIGA_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"PATAAMIGA_SENDGRID_FROM_EMAIL" default:"hola@pataamiga.mx"`
	FromName    string `envconfig:"PATAAMIGA_SENDGRID_FROM_NAME" default:"Club Pata Amiga"`
}

type WhatsAppConfig struct {
	AccessToken   string `envconfig:"PATAAMIGA_WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string `envconfig:"PATAAMIGA_WHATSAPP_PHONE_NUMBER_ID"`
	BaseURL       string `envconfig:"PATAAMIGA_WHATSAPP_BASE_URL" default:"https://graph.facebook.com/v19.0"`
}

// Enabled reports whether credentials were provided.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != ""
}

type SentryConfig struct {
	DSN              string  `envconfig:"PATAAMIGA_SENTRY_DSN"`
	TracesSampleRate float64 `envconfig:"PATAAMIGA_SENTRY_TRACES_SAMPLE_RATE" default:"0.2"`
}

type MembershipConfig struct {
	WaitingPeriodDays        int    `envconfig:"PATAAMIGA_WAITING_PERIOD_DAYS" default:"180"`
	ReducedWaitingPeriodDays int    `envconfig:"PATAAMIGA_REDUCED_WAITING_PERIOD_DAYS" default:"90"`
	MaxAppeals               int    `envconfig:"PATAAMIGA_MAX_APPEALS" default:"2"`
	DefaultCommissionPercent string `envconfig:"PATAAMIGA_DEFAULT_COMMISSION_PERCENT" default:"10"`
}

// DefaultCommission parses DefaultCommissionPercent.
func (m MembershipConfig) DefaultCommission() decimal.Decimal {
	pct, err := decimal.NewFromString(m.DefaultCommissionPercent)
	if err != nil {
		return decimal.NewFromInt(10)
	}
	return pct
}

func (m MembershipConfig) validate() error {
	if m.WaitingPeriodDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvWaitingPeriodDays)
	}
	if m.ReducedWaitingPeriodDays <= 0 || m.ReducedWaitingPeriodDays > m.WaitingPeriodDays {
		return fmt.Errorf("%s must be between 1 and %d", EnvReducedWaitingPeriodDays, m.WaitingPeriodDays)
	}
	if _, err := decimal.NewFromString(m.DefaultCommissionPercent); err != nil {
		return fmt.Errorf("%s: %w", EnvDefaultCommissionPercent, err)
	}
	return nil
}

// CronConfig drives the cron-worker cadence and job windows.
type CronConfig struct {
	Interval              time.Duration `envconfig:"PATAAMIGA_CRON_INTERVAL" default:"1h"`
	LockName              string        `envconfig:"PATAAMIGA_CRON_LOCK_NAME" default:"cron"`
	NotificationRetention time.Duration `envconfig:"PATAAMIGA_NOTIFICATION_RETENTION" default:"2160h"`
	WaitingPeriodLookback time.Duration `envconfig:"PATAAMIGA_WAITING_PERIOD_LOOKBACK" default:"168h"`
	WaitingPeriodBatch    int           `envconfig:"PATAAMIGA_WAITING_PERIOD_BATCH" default:"500"`
}

// BootstrapConfig seeds the first super admin in development environments.
type BootstrapConfig struct {
	AdminEmail    string `envconfig:"PATAAMIGA_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"PATAAMIGA_BOOTSTRAP_ADMIN_PASSWORD"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

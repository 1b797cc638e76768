package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = "LENDINGLOOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "LENDINGLOOP_APP_ENV"
	EnvPort       = "LENDINGLOOP_APP_PORT"
	EnvDBDSN      = "LENDINGLOOP_DB_DSN"
	EnvDBHost     = "LENDINGLOOP_DB_HOST"
	EnvDBUser     = "LENDINGLOOP_DB_USER"
	EnvDBName     = "LENDINGLOOP_DB_NAME"
	EnvRedisURL   = "LENDINGLOOP_REDIS_URL"
	EnvJWTSecret  = "LENDINGLOOP_JWT_SECRET"
	EnvJWTIssuer  = "LENDINGLOOP_JWT_ISSUER"
	EnvJWTExpMins = "LENDINGLOOP_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID      = "LENDINGLOOP_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "LENDINGLOOP_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "LENDINGLOOP_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Invitation    InvitationConfig
	Verification  VerificationConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Sendgrid      SendgridConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LENDINGLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"LENDINGLOOP_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"LENDINGLOOP_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"LENDINGLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LENDINGLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LENDINGLOOP_DB_DSN"`
	Driver string `envconfig:"LENDINGLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LENDINGLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"LENDINGLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LENDINGLOOP_DB_USER"`
	LegacyPassword string `envconfig:"LENDINGLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"LENDINGLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"LENDINGLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LENDINGLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LENDINGLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LENDINGLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LENDINGLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LENDINGLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LENDINGLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"LENDINGLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"LENDINGLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LENDINGLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LENDINGLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LENDINGLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LENDINGLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LENDINGLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LENDINGLOOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LENDINGLOOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LENDINGLOOP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LENDINGLOOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LENDINGLOOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LENDINGLOOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LENDINGLOOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LENDINGLOOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LENDINGLOOP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LENDINGLOOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LENDINGLOOP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LENDINGLOOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LENDINGLOOP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LENDINGLOOP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LENDINGLOOP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// InvitationConfig governs loop invitation tokens. The TTL matches the
// email verification policy so both token families expire on the same clock.
type InvitationConfig struct {
	TokenTTL time.Duration `envconfig:"LENDINGLOOP_INVITATION_TOKEN_TTL" default:"24h"`
}

type VerificationConfig struct {
	TokenTTL time.Duration `envconfig:"LENDINGLOOP_VERIFICATION_TOKEN_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LENDINGLOOP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LENDINGLOOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LENDINGLOOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LENDINGLOOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"LENDINGLOOP_PUBSUB_DOMAIN_TOPIC" default:"lendingloop-domain-events"`
	DomainSubscription string `envconfig:"LENDINGLOOP_PUBSUB_DOMAIN_SUBSCRIPTION"`
	ScoreTopic         string `envconfig:"LENDINGLOOP_PUBSUB_SCORE_TOPIC" default:"lendingloop-score-events"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"LENDINGLOOP_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"LENDINGLOOP_SENDGRID_FROM_EMAIL"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LENDINGLOOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LENDINGLOOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LENDINGLOOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"LENDINGLOOP_CRON_INTERVAL" default:"1h"`
	NotificationRetention time.Duration `envconfig:"LENDINGLOOP_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"LENDINGLOOP_CRON_OUTBOX_RETENTION" default:"168h"`
	MetricsPort           string        `envconfig:"LENDINGLOOP_CRON_METRICS_PORT" default:"9091"`
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

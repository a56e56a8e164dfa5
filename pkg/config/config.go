package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Order    OrderConfig
	GCash    GCashConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Eventing EventingConfig
	Features FeatureFlagsConfig
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
	Env          string `envconfig:"SORBETES_APP_ENV" required:"true"`
	Port         string `envconfig:"SORBETES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SORBETES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SORBETES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SORBETES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SORBETES_DB_DSN"`
	Driver string `envconfig:"SORBETES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SORBETES_DB_HOST"`
	LegacyPort     int    `envconfig:"SORBETES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SORBETES_DB_USER"`
	LegacyPassword string `envconfig:"SORBETES_DB_PASSWORD"`
	LegacyName     string `envconfig:"SORBETES_DB_NAME"`
	LegacySSLMode  string `envconfig:"SORBETES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SORBETES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SORBETES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SORBETES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SORBETES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SORBETES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SORBETES_REDIS_ADDR"`
	Password     string        `envconfig:"SORBETES_REDIS_PASSWORD"`
	DB           int           `envconfig:"SORBETES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SORBETES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SORBETES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SORBETES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SORBETES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SORBETES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OrderConfig carries the reservation and settlement policy knobs.
type OrderConfig struct {
	MinLeadTime        time.Duration `envconfig:"SORBETES_ORDER_MIN_LEAD_TIME" default:"24h"`
	DefaultDeliveryFee string        `envconfig:"SORBETES_ORDER_DELIVERY_FEE" default:"50.00"`
}

type GCashConfig struct {
	GatewayBaseURL string        `envconfig:"SORBETES_GCASH_GATEWAY_BASE_URL"`
	GatewayAPIKey  string        `envconfig:"SORBETES_GCASH_GATEWAY_API_KEY"`
	GatewayTimeout time.Duration `envconfig:"SORBETES_GCASH_GATEWAY_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SORBETES_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SORBETES_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SORBETES_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"SORBETES_PUBSUB_NOTIFICATION_TOPIC" default:"sorbetes-notification-events"`
	NotificationSubscription string `envconfig:"SORBETES_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SORBETES_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SORBETES_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SORBETES_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	PaymentIdempotencyTTL time.Duration `envconfig:"SORBETES_PAYMENT_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SORBETES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SORBETES_AUTO_MIGRATE" default:"false"`
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

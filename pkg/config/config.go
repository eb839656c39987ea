package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Inventory    InventoryConfig
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
	Env          string `envconfig:"LUZIMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"LUZIMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUZIMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUZIMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LUZIMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUZIMARKET_DB_DSN"`
	Driver string `envconfig:"LUZIMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUZIMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"LUZIMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUZIMARKET_DB_USER"`
	LegacyPassword string `envconfig:"LUZIMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUZIMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUZIMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUZIMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUZIMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUZIMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUZIMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUZIMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUZIMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"LUZIMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUZIMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUZIMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUZIMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUZIMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUZIMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUZIMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LUZIMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LUZIMARKET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"LUZIMARKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	OutboxIdempotencyTTL  time.Duration `envconfig:"LUZIMARKET_EVENTING_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LUZIMARKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"LUZIMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LUZIMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"LUZIMARKET_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"LUZIMARKET_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"LUZIMARKET_PUBSUB_NOTIFICATION_TOPIC" default:"lm-notification-events"`
	NotificationSubscription string `envconfig:"LUZIMARKET_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LUZIMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LUZIMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LUZIMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"LUZIMARKET_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"LUZIMARKET_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"LUZIMARKET_STRIPE_ENV" default:"test"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"LUZIMARKET_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"LUZIMARKET_SENDGRID_FROM_EMAIL"`
}

type CronConfig struct {
	InventorySweepInterval time.Duration `envconfig:"LUZIMARKET_CRON_INVENTORY_SWEEP_INTERVAL" default:"1h"`
	LockTTL                time.Duration `envconfig:"LUZIMARKET_CRON_LOCK_TTL" default:"10m"`
}

type InventoryConfig struct {
	LowStockThreshold int           `envconfig:"LUZIMARKET_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
	AlertDebounce     time.Duration `envconfig:"LUZIMARKET_INVENTORY_ALERT_DEBOUNCE" default:"24h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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

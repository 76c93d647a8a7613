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
	Stripe   StripeConfig
	Payouts  PayoutsConfig
	Cron     CronConfig
	Internal InternalAPIConfig
	Alerts   AlertsConfig
	RabbitMQ RabbitMQConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Flags    FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Alerts.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYOUTS_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYOUTS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PAYOUTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYOUTS_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"PAYOUTS_APP_PUBLIC_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"PAYOUTS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PAYOUTS_DB_DSN"`
	Driver string `envconfig:"PAYOUTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYOUTS_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYOUTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYOUTS_DB_USER"`
	LegacyPassword string `envconfig:"PAYOUTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYOUTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYOUTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYOUTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYOUTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYOUTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYOUTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYOUTS_REDIS_URL"`
	Address      string        `envconfig:"PAYOUTS_REDIS_ADDR"`
	Password     string        `envconfig:"PAYOUTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYOUTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYOUTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYOUTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYOUTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYOUTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYOUTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PAYOUTS_STRIPE_API_KEY" required:"true"`
	Env    string `envconfig:"PAYOUTS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PayoutsConfig carries the release worker tunables.
type PayoutsConfig struct {
	BatchLimit           int           `envconfig:"PAYOUTS_BATCH_LIMIT" default:"50"`
	GatewayTimeout       time.Duration `envconfig:"PAYOUTS_GATEWAY_TIMEOUT" default:"15s"`
	RetryWarnThreshold   int           `envconfig:"PAYOUTS_RETRY_WARN_THRESHOLD" default:"3"`
	StuckThreshold       time.Duration `envconfig:"PAYOUTS_STUCK_THRESHOLD" default:"24h"`
	ReleasingTimeout     time.Duration `envconfig:"PAYOUTS_RELEASING_TIMEOUT" default:"2h"`
	DefaultHoldDuration  time.Duration `envconfig:"PAYOUTS_DEFAULT_HOLD" default:"168h"`
	BreakerMaxFailures   uint32        `envconfig:"PAYOUTS_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout   time.Duration `envconfig:"PAYOUTS_BREAKER_OPEN_TIMEOUT" default:"1m"`
	DashboardPayoutsPath string        `envconfig:"PAYOUTS_DASHBOARD_PATH" default:"/organization/payments"`
}

// CronConfig controls the cron-worker cadence and distributed lock.
type CronConfig struct {
	ReleaseSchedule   string        `envconfig:"PAYOUTS_CRON_RELEASE_SCHEDULE" default:"*/5 * * * *"`
	ReconcileSchedule string        `envconfig:"PAYOUTS_CRON_RECONCILE_SCHEDULE" default:"*/30 * * * *"`
	LockTTL           time.Duration `envconfig:"PAYOUTS_CRON_LOCK_TTL" default:"10m"`
}

// InternalAPIConfig guards the operator-only HTTP surface.
type InternalAPIConfig struct {
	Token string `envconfig:"PAYOUTS_INTERNAL_TOKEN"`
	// ReleaseRateLimit caps manual single-payout releases per caller per window.
	ReleaseRateLimit  int           `envconfig:"PAYOUTS_INTERNAL_RELEASE_RATE_LIMIT" default:"30"`
	ReleaseRateWindow time.Duration `envconfig:"PAYOUTS_INTERNAL_RELEASE_RATE_WINDOW" default:"1m"`
}

// AlertsConfig selects how alert emails leave the process.
type AlertsConfig struct {
	Transport string `envconfig:"PAYOUTS_ALERTS_TRANSPORT" default:"none"`
	FromEmail string `envconfig:"PAYOUTS_ALERTS_FROM_EMAIL" default:"alerts@localhost"`
}

func (a AlertsConfig) validate(cfg Config) error {
	switch a.Transport {
	case AlertsTransportNone:
		return nil
	case AlertsTransportRabbitMQ:
		if strings.TrimSpace(cfg.RabbitMQ.URL) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvRabbitMQURL, EnvAlertsTransport, a.Transport)
		}
		return nil
	case AlertsTransportPubSub:
		if strings.TrimSpace(cfg.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvAlertsTransport, a.Transport)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvAlertsTransport, a.Transport)
	}
}

type RabbitMQConfig struct {
	URL        string `envconfig:"PAYOUTS_RABBITMQ_URL"`
	Exchange   string `envconfig:"PAYOUTS_RABBITMQ_EXCHANGE" default:"notifications"`
	RoutingKey string `envconfig:"PAYOUTS_RABBITMQ_ALERT_ROUTING_KEY" default:"email.payout_alert"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PAYOUTS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PAYOUTS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PAYOUTS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AlertsTopic string `envconfig:"PAYOUTS_PUBSUB_ALERTS_TOPIC" default:"payout-alert-emails"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYOUTS_AUTO_MIGRATE" default:"false"`
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

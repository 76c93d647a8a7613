package config

// EnvPrefix is handed to envconfig; every field also carries its full variable name.
const EnvPrefix = "PAYOUTS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	AlertsTransportNone     = "none"
	AlertsTransportRabbitMQ = "rabbitmq"
	AlertsTransportPubSub   = "pubsub"
)

const (
	EnvAppEnv   = "PAYOUTS_APP_ENV"
	EnvPort     = "PAYOUTS_APP_PORT"
	EnvLogLevel = "PAYOUTS_LOG_LEVEL"

	EnvDBDSN  = "PAYOUTS_DB_DSN"
	EnvDBHost = "PAYOUTS_DB_HOST"
	EnvDBUser = "PAYOUTS_DB_USER"
	EnvDBName = "PAYOUTS_DB_NAME"

	EnvRedisURL = "PAYOUTS_REDIS_URL"

	EnvStripeAPIKey = "PAYOUTS_STRIPE_API_KEY"
	EnvStripeEnv    = "PAYOUTS_STRIPE_ENV"

	EnvBatchLimit      = "PAYOUTS_BATCH_LIMIT"
	EnvStuckThreshold  = "PAYOUTS_STUCK_THRESHOLD"
	EnvReleaseSchedule = "PAYOUTS_CRON_RELEASE_SCHEDULE"
	EnvInternalToken   = "PAYOUTS_INTERNAL_TOKEN"

	EnvAlertsTransport = "PAYOUTS_ALERTS_TRANSPORT"
	EnvRabbitMQURL     = "PAYOUTS_RABBITMQ_URL"
	EnvGCPProjectID    = "PAYOUTS_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

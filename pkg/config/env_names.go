package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "SORBETES"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error text).
const (
	EnvAppEnv   = "SORBETES_APP_ENV"
	EnvPort     = "SORBETES_APP_PORT"
	EnvDBDSN    = "SORBETES_DB_DSN"
	EnvDBHost   = "SORBETES_DB_HOST"
	EnvDBUser   = "SORBETES_DB_USER"
	EnvDBName   = "SORBETES_DB_NAME"
	EnvRedisURL = "SORBETES_REDIS_URL"

	EnvGCPProjectID         = "SORBETES_GCP_PROJECT_ID"
	EnvPubSubNotifTopic     = "SORBETES_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotifSub       = "SORBETES_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvGCashGatewayBaseURL  = "SORBETES_GCASH_GATEWAY_BASE_URL"
	EnvGCashGatewayAPIKey   = "SORBETES_GCASH_GATEWAY_API_KEY"
	EnvOrderMinLeadTime     = "SORBETES_ORDER_MIN_LEAD_TIME"
	EnvOrderDeliveryFee     = "SORBETES_ORDER_DELIVERY_FEE"
	EnvPaymentIdempotencyNS = "SORBETES_PAYMENT_IDEMPOTENCY_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

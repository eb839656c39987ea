package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "LUZIMARKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "LUZIMARKET_APP_ENV"
	EnvPort   = "LUZIMARKET_APP_PORT"

	EnvDBDSN  = "LUZIMARKET_DB_DSN"
	EnvDBHost = "LUZIMARKET_DB_HOST"
	EnvDBUser = "LUZIMARKET_DB_USER"
	EnvDBName = "LUZIMARKET_DB_NAME"

	EnvRedisURL = "LUZIMARKET_REDIS_URL"

	EnvGCPProjectID = "LUZIMARKET_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic      = "LUZIMARKET_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub        = "LUZIMARKET_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationSub  = "LUZIMARKET_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvStripeAPIKey           = "LUZIMARKET_STRIPE_API_KEY"
	EnvStripeWebhookSecret    = "LUZIMARKET_STRIPE_WEBHOOK_SECRET"
	EnvInventoryLowStockLimit = "LUZIMARKET_INVENTORY_LOW_STOCK_THRESHOLD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

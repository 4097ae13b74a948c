package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvPublicURL          = "STOREFRONT_PUBLIC_URL"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvDBPassword         = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer          = "STOREFRONT_JWT_ISSUER"
	EnvStripeAPIKey       = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeSecret       = "STOREFRONT_STRIPE_SECRET"
	EnvPricingThreshold   = "STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingShippingFee = "STOREFRONT_PRICING_SHIPPING_FEE"
	EnvCronInterval       = "STOREFRONT_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

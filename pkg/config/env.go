package config

const (
	EnvPrefix = "CANTEEN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	TransportPubSub = "pubsub"
	TransportKafka  = "kafka"
)

const (
	EnvAppEnv               = "CANTEEN_APP_ENV"
	EnvAppTimeZone          = "CANTEEN_APP_TIME_ZONE"
	EnvPort                 = "CANTEEN_APP_PORT"
	EnvRedisURL             = "CANTEEN_REDIS_URL"
	EnvJWTSecret            = "CANTEEN_JWT_SECRET"
	EnvJWTIssuer            = "CANTEEN_JWT_ISSUER"
	EnvKafkaBrokers         = "CANTEEN_KAFKA_BROKERS"
	EnvDBDSN                = "CANTEEN_DB_DSN"
	EnvDBHost               = "CANTEEN_DB_HOST"
	EnvDBUser               = "CANTEEN_DB_USER"
	EnvDBName               = "CANTEEN_DB_NAME"
	EnvEventingTransport    = "CANTEEN_EVENTING_TRANSPORT"
	EnvLedgerHouseAccountID = "CANTEEN_LEDGER_HOUSE_ACCOUNT_ID"
	EnvPointsCalendarPath   = "CANTEEN_POINTS_CALENDAR_PATH"
	EnvWalletKeyPassphrase  = "CANTEEN_WALLET_KEY_PASSPHRASE"
	EnvChainRPCURL          = "CANTEEN_CHAIN_RPC_URL"
	EnvChainOperatorKey     = "CANTEEN_CHAIN_OPERATOR_KEY"
	EnvChainPointTokenAddr  = "CANTEEN_CHAIN_POINT_TOKEN_ADDRESS"
	EnvChainCreditTokenAddr = "CANTEEN_CHAIN_CREDIT_TOKEN_ADDRESS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

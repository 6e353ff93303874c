package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	WalletKey    WalletKeyConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Ordering     OrderingConfig
	Ledger       LedgerConfig
	Points       PointsConfig
	Chain        ChainConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Eventing.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CANTEEN_APP_ENV" required:"true"`
	Port         string   `envconfig:"CANTEEN_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"CANTEEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CANTEEN_LOG_WARN_STACK" default:"false"`
	TimeZone     string   `envconfig:"CANTEEN_APP_TIME_ZONE" default:"UTC"`
	CORSOrigins  []string `envconfig:"CANTEEN_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the service-wide calendar zone used when an account has none.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvAppTimeZone, name, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"CANTEEN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CANTEEN_DB_DSN"`
	Driver string `envconfig:"CANTEEN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CANTEEN_DB_HOST"`
	LegacyPort     int    `envconfig:"CANTEEN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CANTEEN_DB_USER"`
	LegacyPassword string `envconfig:"CANTEEN_DB_PASSWORD"`
	LegacyName     string `envconfig:"CANTEEN_DB_NAME"`
	LegacySSLMode  string `envconfig:"CANTEEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns     int           `envconfig:"CANTEEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns     int           `envconfig:"CANTEEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime  time.Duration `envconfig:"CANTEEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime  time.Duration `envconfig:"CANTEEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	StatementTimeout time.Duration `envconfig:"CANTEEN_DB_STATEMENT_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CANTEEN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CANTEEN_REDIS_ADDR"`
	Password     string        `envconfig:"CANTEEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"CANTEEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CANTEEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CANTEEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CANTEEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CANTEEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CANTEEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CANTEEN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CANTEEN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CANTEEN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// WalletKeyConfig tunes the Argon2id derivation that protects mirror wallet keys.
type WalletKeyConfig struct {
	Passphrase       string `envconfig:"CANTEEN_WALLET_KEY_PASSPHRASE"`
	ArgonMemoryKB    int    `envconfig:"CANTEEN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"CANTEEN_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"CANTEEN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int    `envconfig:"CANTEEN_ARGON_SALT_LEN" default:"16"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"CANTEEN_AUTO_MIGRATE" default:"false"`
	MirrorEnabled bool `envconfig:"CANTEEN_FEATURE_MIRROR_ENABLED" default:"true"`
}

type EventingConfig struct {
	Transport      string        `envconfig:"CANTEEN_EVENTING_TRANSPORT" default:"pubsub"`
	IdempotencyTTL time.Duration `envconfig:"CANTEEN_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

func (e EventingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(e.Transport)) {
	case TransportPubSub, TransportKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvEventingTransport, TransportPubSub, TransportKafka)
	}
}

// UsesKafka reports whether events travel over kafka instead of pub/sub.
func (e EventingConfig) UsesKafka() bool {
	return strings.EqualFold(strings.TrimSpace(e.Transport), TransportKafka)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CANTEEN_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CANTEEN_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CANTEEN_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"CANTEEN_PUBSUB_LEDGER_TOPIC" default:"cn-ledger-events"`
	LedgerSubscription string `envconfig:"CANTEEN_PUBSUB_LEDGER_SUBSCRIPTION" default:"cn-ledger-mirror"`
	OrdersTopic        string `envconfig:"CANTEEN_PUBSUB_ORDERS_TOPIC" default:"cn-order-events"`
}

type KafkaConfig struct {
	Brokers       []string `envconfig:"CANTEEN_KAFKA_BROKERS" default:"localhost:9092"`
	LedgerTopic   string   `envconfig:"CANTEEN_KAFKA_LEDGER_TOPIC" default:"cn.ledger.events"`
	OrdersTopic   string   `envconfig:"CANTEEN_KAFKA_ORDERS_TOPIC" default:"cn.order.events"`
	ConsumerGroup string   `envconfig:"CANTEEN_KAFKA_CONSUMER_GROUP" default:"cn-ledger-mirror"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CANTEEN_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CANTEEN_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CANTEEN_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CANTEEN_OUTBOX_RETENTION_DAYS" default:"30"`
}

type OrderingConfig struct {
	MaxQuantityPerOrder int           `envconfig:"CANTEEN_ORDER_MAX_QUANTITY" default:"50"`
	CheckoutRateLimit   int           `envconfig:"CANTEEN_CHECKOUT_RATE_LIMIT" default:"5"`
	CheckoutRateWindow  time.Duration `envconfig:"CANTEEN_CHECKOUT_RATE_WINDOW" default:"1m"`
}

type LedgerConfig struct {
	HouseAccountID string `envconfig:"CANTEEN_LEDGER_HOUSE_ACCOUNT_ID" required:"true"`
}

// HouseAccount parses the configured house account identifier.
func (l LedgerConfig) HouseAccount() (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(l.HouseAccountID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", EnvLedgerHouseAccountID, err)
	}
	return id, nil
}

type PointsConfig struct {
	DailyAmount  int64  `envconfig:"CANTEEN_POINTS_DAILY_AMOUNT" default:"50"`
	CalendarPath string `envconfig:"CANTEEN_POINTS_CALENDAR_PATH"`
}

type ChainConfig struct {
	RPCURL             string        `envconfig:"CANTEEN_CHAIN_RPC_URL"`
	ChainID            int64         `envconfig:"CANTEEN_CHAIN_ID" default:"1337"`
	OperatorKey        string        `envconfig:"CANTEEN_CHAIN_OPERATOR_KEY"`
	PointTokenAddress  string        `envconfig:"CANTEEN_CHAIN_POINT_TOKEN_ADDRESS"`
	CreditTokenAddress string        `envconfig:"CANTEEN_CHAIN_CREDIT_TOKEN_ADDRESS"`
	Decimals           int32         `envconfig:"CANTEEN_CHAIN_TOKEN_DECIMALS" default:"2"`
	CallTimeout        time.Duration `envconfig:"CANTEEN_CHAIN_CALL_TIMEOUT" default:"15s"`
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"CANTEEN_CRON_INTERVAL" default:"24h"`
	LockTTL            time.Duration `envconfig:"CANTEEN_CRON_LOCK_TTL" default:"30m"`
	ReconcileBatchSize int           `envconfig:"CANTEEN_CRON_RECONCILE_BATCH_SIZE" default:"200"`
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

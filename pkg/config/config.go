package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MEDIMANDI"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MEDIMANDI_DB_DSN"
	EnvDBHost = "MEDIMANDI_DB_HOST"
	EnvDBUser = "MEDIMANDI_DB_USER"
	EnvDBName = "MEDIMANDI_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Auction      AuctionConfig
	Reconcile    ReconcileConfig
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
	Env          string `envconfig:"MEDIMANDI_APP_ENV" required:"true"`
	Port         string `envconfig:"MEDIMANDI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEDIMANDI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEDIMANDI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEDIMANDI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEDIMANDI_DB_DSN"`
	Driver string `envconfig:"MEDIMANDI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEDIMANDI_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDIMANDI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDIMANDI_DB_USER"`
	LegacyPassword string `envconfig:"MEDIMANDI_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDIMANDI_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDIMANDI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEDIMANDI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDIMANDI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDIMANDI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDIMANDI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDIMANDI_REDIS_URL"`
	Address      string        `envconfig:"MEDIMANDI_REDIS_ADDR"`
	Password     string        `envconfig:"MEDIMANDI_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDIMANDI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDIMANDI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDIMANDI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDIMANDI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDIMANDI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDIMANDI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEDIMANDI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEDIMANDI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEDIMANDI_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEDIMANDI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEDIMANDI_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MEDIMANDI_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"MEDIMANDI_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"MEDIMANDI_PUBSUB_DOMAIN_TOPIC" default:"mm-domain-events"`
	DomainSubscription string `envconfig:"MEDIMANDI_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MEDIMANDI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MEDIMANDI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MEDIMANDI_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// AuctionConfig tunes the bid-request lifecycle.
type AuctionConfig struct {
	SweepInterval     time.Duration `envconfig:"MEDIMANDI_AUCTION_SWEEP_INTERVAL" default:"5m"`
	RequestTTL        time.Duration `envconfig:"MEDIMANDI_AUCTION_REQUEST_TTL" default:"1h"`
	BidActivityWindow time.Duration `envconfig:"MEDIMANDI_AUCTION_BID_ACTIVITY_WINDOW" default:"30m"`
	BucketWindow      time.Duration `envconfig:"MEDIMANDI_AUCTION_BUCKET_WINDOW" default:"1h"`
	MinOutbidStep     float64       `envconfig:"MEDIMANDI_AUCTION_MIN_OUTBID_STEP" default:"0.1"`
}

// ReconcileConfig tunes inventory ingestion and matching.
type ReconcileConfig struct {
	ChunkSize        int     `envconfig:"MEDIMANDI_RECONCILE_CHUNK_SIZE" default:"500"`
	BulkThreshold    float64 `envconfig:"MEDIMANDI_RECONCILE_BULK_THRESHOLD" default:"0.45"`
	SearchThreshold  float64 `envconfig:"MEDIMANDI_RECONCILE_SEARCH_THRESHOLD" default:"0.4"`
	FuzzyPrefixChars int     `envconfig:"MEDIMANDI_RECONCILE_FUZZY_PREFIX_CHARS" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		return fmt.Errorf("%s is required when the sqlite driver is selected", EnvDBDSN)
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

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
	Chain        ChainConfig
	Sync         SyncConfig
	Metadata     MetadataConfig
	Orders       OrdersConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if len(cfg.Chain.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("%s is required", EnvChainRPCEndpoints)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BEARMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"BEARMARKET_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"BEARMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BEARMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BEARMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BEARMARKET_DB_DSN"`
	Driver string `envconfig:"BEARMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BEARMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"BEARMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BEARMARKET_DB_USER"`
	LegacyPassword string `envconfig:"BEARMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"BEARMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"BEARMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BEARMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BEARMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BEARMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BEARMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BEARMARKET_REDIS_URL"`
	Address      string        `envconfig:"BEARMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"BEARMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"BEARMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BEARMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BEARMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BEARMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BEARMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BEARMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ChainConfig describes the ledger the index mirrors.
type ChainConfig struct {
	RPCEndpoints     []string      `envconfig:"BEARMARKET_CHAIN_RPC_ENDPOINTS"`
	ChainID          int64         `envconfig:"BEARMARKET_CHAIN_ID" default:"33139"`
	NFTContract      string        `envconfig:"BEARMARKET_NFT_CONTRACT" required:"true"`
	SeaportContract  string        `envconfig:"BEARMARKET_SEAPORT_CONTRACT" required:"true"`
	FromBlock        uint64        `envconfig:"BEARMARKET_CHAIN_FROM_BLOCK" default:"0"`
	DialTimeout      time.Duration `envconfig:"BEARMARKET_CHAIN_DIAL_TIMEOUT" default:"10s"`
	CallTimeout      time.Duration `envconfig:"BEARMARKET_CHAIN_CALL_TIMEOUT" default:"15s"`
	OperatorKey      string        `envconfig:"BEARMARKET_CHAIN_OPERATOR_KEY"`
	SettlementBlocks uint64        `envconfig:"BEARMARKET_CHAIN_SETTLEMENT_CONFIRMATIONS" default:"1"`
}

type SyncConfig struct {
	Strategy  string `envconfig:"BEARMARKET_SYNC_STRATEGY" default:"events"`
	BatchSize int    `envconfig:"BEARMARKET_SYNC_BATCH_SIZE" default:"20"`
}

type MetadataConfig struct {
	IPFSGateway      string        `envconfig:"BEARMARKET_METADATA_IPFS_GATEWAY" default:"https://ipfs.io/ipfs/"`
	FetchTimeout     time.Duration `envconfig:"BEARMARKET_METADATA_FETCH_TIMEOUT" default:"10s"`
	CacheSize        int           `envconfig:"BEARMARKET_METADATA_CACHE_SIZE" default:"4096"`
	PlaceholderImage string        `envconfig:"BEARMARKET_METADATA_PLACEHOLDER_IMAGE" default:"https://ipfs.io/ipfs/QmExampleNFTImage/default.png"`
}

type OrdersConfig struct {
	ListingTTL   time.Duration `envconfig:"BEARMARKET_ORDERS_LISTING_TTL" default:"720h"`
	FeedLimit    int           `envconfig:"BEARMARKET_ORDERS_FEED_LIMIT" default:"500"`
	FeedLimitMax int           `envconfig:"BEARMARKET_ORDERS_FEED_LIMIT_MAX" default:"1000"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"BEARMARKET_CRON_INTERVAL" default:"10m"`
	SweepPageSize int           `envconfig:"BEARMARKET_CRON_SWEEP_PAGE_SIZE" default:"200"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BEARMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BEARMARKET_AUTO_MIGRATE" default:"false"`
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

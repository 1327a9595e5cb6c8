package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "GOLDBOOKS"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "GOLDBOOKS_APP_ENV"
	EnvDBDSN  = "GOLDBOOKS_DB_DSN"
	EnvDBHost = "GOLDBOOKS_DB_HOST"
	EnvDBUser = "GOLDBOOKS_DB_USER"
	EnvDBName = "GOLDBOOKS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Voucher       VoucherConfig
	Reconcile     ReconcileConfig
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
	Env          string `envconfig:"GOLDBOOKS_APP_ENV" required:"true"`
	Port         string `envconfig:"GOLDBOOKS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GOLDBOOKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GOLDBOOKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"GOLDBOOKS_DB_DSN"`

	LegacyHost     string `envconfig:"GOLDBOOKS_DB_HOST"`
	LegacyPort     int    `envconfig:"GOLDBOOKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GOLDBOOKS_DB_USER"`
	LegacyPassword string `envconfig:"GOLDBOOKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"GOLDBOOKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"GOLDBOOKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GOLDBOOKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GOLDBOOKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GOLDBOOKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GOLDBOOKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GOLDBOOKS_REDIS_URL"`
	Address      string        `envconfig:"GOLDBOOKS_REDIS_ADDR"`
	Password     string        `envconfig:"GOLDBOOKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"GOLDBOOKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GOLDBOOKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GOLDBOOKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GOLDBOOKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GOLDBOOKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GOLDBOOKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GOLDBOOKS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GOLDBOOKS_JWT_ISSUER" default:"goldbooks"`
	ExpirationMinutes      int    `envconfig:"GOLDBOOKS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"GOLDBOOKS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GOLDBOOKS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GOLDBOOKS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GOLDBOOKS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GOLDBOOKS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GOLDBOOKS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GOLDBOOKS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"GOLDBOOKS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"GOLDBOOKS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GOLDBOOKS_AUTO_MIGRATE" default:"false"`
}

// VoucherConfig tunes voucher ID minting.
type VoucherConfig struct {
	DefaultPrefix string `envconfig:"GOLDBOOKS_VOUCHER_DEFAULT_PREFIX" default:"GB"`
	PadWidth      int    `envconfig:"GOLDBOOKS_VOUCHER_PAD_WIDTH" default:"4"`
	MintAttempts  int    `envconfig:"GOLDBOOKS_VOUCHER_MINT_ATTEMPTS" default:"3"`
}

// ReconcileConfig tunes the ledger reconciliation job.
type ReconcileConfig struct {
	Interval  time.Duration `envconfig:"GOLDBOOKS_RECONCILE_INTERVAL" default:"1h"`
	BatchSize int           `envconfig:"GOLDBOOKS_RECONCILE_BATCH_SIZE" default:"200"`
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

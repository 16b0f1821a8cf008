// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/security"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverREST     = "rest"
)

// Local store kinds.
const (
	LocalStoreFile  = "file"
	LocalStoreRedis = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is console or json.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// StoreDriver selects the data backend: postgres (self-hosted) or rest (hosted PostgREST + GoTrue).
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SupabaseURL is the hosted project base URL (e.g. https://xyz.supabase.co); required when StoreDriver is rest.
	SupabaseURL string `mapstructure:"SUPABASE_URL"`
	// SupabaseAnonKey is the public API key sent as apikey header; required when StoreDriver is rest.
	SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`
	// RequestTimeout bounds each HTTP request to the hosted backend (e.g. "10s").
	RequestTimeout string `mapstructure:"REQUEST_TIMEOUT"`

	// LocalStore selects where local session records live: file or redis.
	LocalStore string `mapstructure:"LOCAL_STORE"`
	// LocalStoreDir is the directory for file-backed local records.
	LocalStoreDir string `mapstructure:"LOCAL_STORE_DIR"`
	// RedisAddr is host:port for the redis local store.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the redis logical database.
	RedisDB int `mapstructure:"REDIS_DB"`

	// DemoAccounts is a comma-separated allow-list of demo emails that bypass the auth provider.
	DemoAccounts string `mapstructure:"DEMO_ACCOUNTS"`
	// DemoPassword is the shared password for demo accounts.
	DemoPassword string `mapstructure:"DEMO_PASSWORD"`
	// DemoEnabled turns the demo login path on. Must be false when Env is production.
	DemoEnabled bool `mapstructure:"DEMO_ENABLED"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12. Used by the postgres auth provider and seed.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; postgres auth provider only.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "12h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token and auth session lifetime (e.g. "720h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	// KafkaBrokers is a comma-separated list of brokers; when set, audit events are also published to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("LOCAL_STORE", LocalStoreFile)
	v.SetDefault("LOCAL_STORE_DIR", ".salesctl")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEMO_ACCOUNTS", "joao@empresa.com,maria@empresa.com,pedro@empresa.com")
	v.SetDefault("DEMO_PASSWORD", "123456")
	v.SetDefault("DEMO_ENABLED", true)
	v.SetDefault("BCRYPT_COST", security.DefaultCost)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "salesteam-auth")
	v.SetDefault("JWT_AUDIENCE", "salesteam-api")
	v.SetDefault("JWT_ACCESS_TTL", "12h")
	v.SetDefault("JWT_REFRESH_TTL", "720h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "salesteam-audit")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverREST:
	default:
		return nil, errors.New("config: STORE_DRIVER must be postgres or rest")
	}

	cfg.LocalStore = strings.ToLower(strings.TrimSpace(cfg.LocalStore))
	switch cfg.LocalStore {
	case LocalStoreFile:
		if cfg.LocalStoreDir == "" {
			return nil, errors.New("config: LOCAL_STORE_DIR must be set when LOCAL_STORE=file")
		}
	case LocalStoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when LOCAL_STORE=redis")
		}
	default:
		return nil, errors.New("config: LOCAL_STORE must be file or redis")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = security.DefaultCost
	}
	if cfg.BcryptCost < security.MinCost || cfg.BcryptCost > security.MaxCost {
		return nil, fmt.Errorf("config: BCRYPT_COST must be between %d and %d", security.MinCost, security.MaxCost)
	}

	if cfg.DemoEnabled && cfg.Env == "production" {
		return nil, errors.New("config: DEMO_ENABLED must be false when APP_ENV=production")
	}
	if cfg.DemoEnabled && cfg.DemoPassword == "" {
		return nil, errors.New("config: DEMO_PASSWORD must be set when DEMO_ENABLED=true")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the selected store driver are present.
// Commands that never touch the store (e.g. help) skip it.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
		if c.JWTPrivateKey == "" || c.JWTPublicKey == "" {
			return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set when STORE_DRIVER=postgres")
		}
	case StoreDriverREST:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return errors.New("config: SUPABASE_URL and SUPABASE_ANON_KEY must be set when STORE_DRIVER=rest")
		}
	}
	return nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// HTTPTimeout parses RequestTimeout. Returns 10s if unset or invalid.
func (c *Config) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DemoAccountList returns the lower-cased demo allow-list.
func (c *Config) DemoAccountList() []string {
	return splitList(strings.ToLower(c.DemoAccounts))
}

// KafkaBrokerList returns Kafka broker addresses from the comma-separated config.
// Used to decide if audit publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokerList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

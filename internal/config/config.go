package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Ledger lock modes
const (
	LockPessimistic = "pessimistic"
	LockOptimistic  = "optimistic"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	AppName     string `mapstructure:"APP_NAME"`
	Env         string `mapstructure:"APP_ENV"` // development | production
	Port        string `mapstructure:"PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBLogLevel  string `mapstructure:"DB_LOG_LEVEL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	AdminEmail         string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword      string `mapstructure:"ADMIN_PASSWORD"`

	// Cache
	RedisURL      string        `mapstructure:"REDIS_URL"`
	ChartCacheTTL time.Duration `mapstructure:"CHART_CACHE_TTL"`

	// Event stream
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	// Tracing
	OtelEndpoint string `mapstructure:"OTEL_ENDPOINT"`

	// Ledger
	LedgerLockMode   string `mapstructure:"LEDGER_LOCK_MODE"`
	LedgerMaxRetries int    `mapstructure:"LEDGER_MAX_RETRIES"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "Stock Ledger v1.0")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stock_ledger")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("JWT_SECRET", "your-super-secret-key-change-in-production")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CHART_CACHE_TTL", "5m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "stock-ledger-events")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("LEDGER_LOCK_MODE", LockPessimistic)
	v.SetDefault("LEDGER_MAX_RETRIES", 5)
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	c.LedgerLockMode = strings.ToLower(strings.TrimSpace(c.LedgerLockMode))
	switch c.LedgerLockMode {
	case LockPessimistic, LockOptimistic:
	default:
		return fmt.Errorf("LEDGER_LOCK_MODE must be %q or %q, got %q", LockPessimistic, LockOptimistic, c.LedgerLockMode)
	}
	if c.LedgerMaxRetries < 1 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must be at least 1, got %d", c.LedgerMaxRetries)
	}
	if c.JWTExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1, got %d", c.JWTExpirationHours)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DSN returns DATABASE_URL or builds a key/value DSN from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// Brokers splits KAFKA_BROKERS on commas. Empty means Kafka is disabled.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

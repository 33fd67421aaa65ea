package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// SSOT: every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Price cache storage
	Storage StorageConfig

	// Database (required only when Storage.Backend == "postgres")
	Database DatabaseConfig

	// Redis (report cache)
	Redis RedisConfig

	// Market data providers
	Provider ProviderConfig

	// Report mail dispatch (delivery itself is an external collaborator)
	Mail MailConfig

	// Pool definitions
	PoolsFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// StorageConfig selects and configures the price series backend.
type StorageConfig struct {
	Backend  string // csv | postgres
	CacheDir string // csv backend only
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds market data provider configuration.
type ProviderConfig struct {
	EastmoneyBaseURL string
	SinaBaseURL      string
	Timeout          time.Duration
	RatePerSecond    float64 // sustained request rate against public endpoints
	MaxRetries       int
}

// MailConfig holds report dispatch configuration. The SMTP transport is an
// external collaborator; these values are handed to the injected sender.
type MailConfig struct {
	SMTPHost      string
	SMTPPort      int
	Sender        string
	Password      string
	DailySendTime string // HH:MM, local to Timezone
	Timezone      string
}

// Load reads configuration from environment variables.
// SSOT: this is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8086"),
		Env:  getEnv("ENV", "development"),

		Storage: StorageConfig{
			Backend:  getEnv("STORAGE_BACKEND", "csv"),
			CacheDir: getEnv("CACHE_DIR", "etf_cache"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Provider: ProviderConfig{
			EastmoneyBaseURL: getEnv("EASTMONEY_BASE_URL", "https://push2his.eastmoney.com"),
			SinaBaseURL:      getEnv("SINA_BASE_URL", "https://money.finance.sina.com.cn"),
			Timeout:          getEnvAsDuration("PROVIDER_TIMEOUT", "20s"),
			RatePerSecond:    getEnvAsFloat("PROVIDER_RATE_PER_SECOND", 5),
			MaxRetries:       getEnvAsInt("PROVIDER_MAX_RETRIES", 3),
		},

		Mail: MailConfig{
			SMTPHost:      getEnv("SMTP_HOST", "smtp.qq.com"),
			SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
			Sender:        getEnv("SMTP_SENDER", ""),
			Password:      getEnv("SMTP_PASSWORD", ""),
			DailySendTime: getEnv("MAIL_DAILY_SEND_TIME", "18:00"),
			Timezone:      getEnv("MAIL_TIMEZONE", "Asia/Shanghai"),
		},

		PoolsFile: getEnv("POOLS_FILE", "configs/pools.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Storage.Backend {
	case "csv":
		if c.Storage.CacheDir == "" {
			return fmt.Errorf("CACHE_DIR is required for the csv backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be csv or postgres")
	}

	if c.Provider.RatePerSecond <= 0 {
		return fmt.Errorf("PROVIDER_RATE_PER_SECOND must be > 0")
	}
	if _, err := time.Parse("15:04", c.Mail.DailySendTime); err != nil {
		return fmt.Errorf("MAIL_DAILY_SEND_TIME must be HH:MM")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// Package config provides configuration management for the profitability engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Upstream UpstreamConfig
	BestCoin BestCoinConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// EngineConfig holds snapshot engine configuration
type EngineConfig struct {
	// ElectricityUsdPerKwh is the operating-cost input applied to every device.
	ElectricityUsdPerKwh float64
	// ProviderHashrateUnitHs is the hashrate base the payout table is
	// denominated in. ZergPool publishes estimates per MH/s.
	ProviderHashrateUnitHs float64
	// TriggerSecret authorizes the snapshot trigger endpoint. When empty, the
	// scheduler user-agent substring is trusted instead.
	TriggerSecret string
	// SchedulerUserAgent is the substring matched against User-Agent when no
	// trigger secret is configured.
	SchedulerUserAgent string
	// Workers bounds the per-device computation pool.
	Workers int
}

// UpstreamConfig holds upstream feed configuration
type UpstreamConfig struct {
	PayoutFeedURL     string
	FxRatesURL        string
	CoinGeckoURL      string
	CoinbaseURL       string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	FxCacheTTL        time.Duration
}

// BestCoinConfig holds the confidence-scoring policy for coin selection.
// The weights are policy constants, overridable rather than hard-coded.
type BestCoinConfig struct {
	BaseConfidence    int
	StalePricePenalty int           // applied when the reference price fell back to persisted data
	StaleRatePenalty  int           // applied when the payout fetch is older than RateAgeThreshold
	RateAgeThreshold  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "rig_profit"),
				User:           getEnv("POSTGRES_USER", "rigprofit"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "rig_profit"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Engine: EngineConfig{
			ElectricityUsdPerKwh:   getEnvAsFloat("ELECTRICITY_USD_PER_KWH", 0.10),
			ProviderHashrateUnitHs: getEnvAsFloat("PROVIDER_HASHRATE_UNIT_HS", 1e6),
			TriggerSecret:          getEnv("SNAPSHOT_TRIGGER_SECRET", ""),
			SchedulerUserAgent:     getEnv("SCHEDULER_USER_AGENT", "rig-profit-cron"),
			Workers:                getEnvAsInt("SNAPSHOT_WORKERS", 8),
		},
		Upstream: UpstreamConfig{
			PayoutFeedURL:     getEnv("PAYOUT_FEED_URL", "http://api.zergpool.com:8080/api/status"),
			FxRatesURL:        getEnv("FX_RATES_URL", "https://open.er-api.com/v6/latest/USD"),
			CoinGeckoURL:      getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
			CoinbaseURL:       getEnv("COINBASE_URL", "https://api.coinbase.com/v2"),
			RequestTimeout:    getEnvAsDuration("UPSTREAM_REQUEST_TIMEOUT", 15*time.Second),
			RequestsPerSecond: getEnvAsFloat("UPSTREAM_REQUESTS_PER_SECOND", 2),
			FxCacheTTL:        getEnvAsDuration("FX_CACHE_TTL", 30*time.Minute),
		},
		BestCoin: BestCoinConfig{
			BaseConfidence:    getEnvAsInt("BEST_COIN_BASE_CONFIDENCE", 100),
			StalePricePenalty: getEnvAsInt("BEST_COIN_STALE_PRICE_PENALTY", 25),
			StaleRatePenalty:  getEnvAsInt("BEST_COIN_STALE_RATE_PENALTY", 15),
			RateAgeThreshold:  getEnvAsDuration("BEST_COIN_RATE_AGE_THRESHOLD", 30*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

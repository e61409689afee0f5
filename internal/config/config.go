package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ExchangeAPIURL         string
	ExchangeRetryMax       int
	ExchangeRetryBaseDelay time.Duration
	ExchangeRateLimit      float64
	PricePollInterval      time.Duration
	DepositPollInterval    time.Duration
	DepositPollMaxAttempts int
	SessionIdleTTL         time.Duration
	RequiredAssets         []string
	AssetCatalogFile       string
	MinDeposit             decimal.Decimal
	MaxDeposit             decimal.Decimal
	MinWithdrawal          decimal.Decimal
	DatabaseURL            string
	HistoryInterval        time.Duration
	RedisURL               string
	IdempotencyTTL         time.Duration
	GoogleSheetsID         string
	GoogleCredentialsJSON  string
	AdminAPIKey            string
	MetricsEnabled         bool
	HTTPPort               string
	LogLevel               string
	LogFormat              string
	LogFile                string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		ExchangeAPIURL:         envOrDefault("EXCHANGE_API_URL", "https://api.intuitionexchange.com"),
		ExchangeRetryMax:       envOrDefaultInt("EXCHANGE_RETRY_MAX", 3),
		ExchangeRetryBaseDelay: envOrDefaultDuration("EXCHANGE_RETRY_BASE_DELAY", 500*time.Millisecond),
		ExchangeRateLimit:      envOrDefaultFloat("EXCHANGE_RATE_LIMIT", 10),
		PricePollInterval:      envOrDefaultDuration("PRICE_POLL_INTERVAL", 5*time.Second),
		DepositPollInterval:    envOrDefaultDuration("DEPOSIT_POLL_INTERVAL", 3*time.Second),
		DepositPollMaxAttempts: envOrDefaultInt("DEPOSIT_POLL_MAX_ATTEMPTS", 10),
		SessionIdleTTL:         envOrDefaultDuration("SESSION_IDLE_TTL", 30*time.Minute),
		RequiredAssets:         envOrDefaultSymbols("REQUIRED_ASSETS", domain.RequiredAssets()),
		AssetCatalogFile:       envOrDefault("ASSET_CATALOG_FILE", ""),
		MinDeposit:             envOrDefaultDecimal("FIAT_MIN_DEPOSIT", decimal.NewFromInt(10)),
		MaxDeposit:             envOrDefaultDecimal("FIAT_MAX_DEPOSIT", decimal.NewFromInt(10000)),
		MinWithdrawal:          envOrDefaultDecimal("FIAT_MIN_WITHDRAWAL", decimal.NewFromInt(10)),
		DatabaseURL:            envOrDefaultWarn("DATABASE_URL", ""),
		HistoryInterval:        envOrDefaultDuration("HISTORY_INTERVAL", 24*time.Hour),
		RedisURL:               envOrDefault("REDIS_URL", ""),
		IdempotencyTTL:         envOrDefaultDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		GoogleSheetsID:         envOrDefault("GOOGLE_SHEETS_SPREADSHEET_ID", ""),
		GoogleCredentialsJSON:  envOrDefault("GOOGLE_SHEETS_CREDENTIALS_JSON", ""),
		AdminAPIKey:            envOrDefault("ADMIN_API_KEY", ""),
		MetricsEnabled:         envOrDefaultBool("METRICS_ENABLED", true),
		HTTPPort:               envOrDefault("HTTP_PORT", "8080"),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		LogFormat:              envOrDefault("LOG_FORMAT", "json"),
		LogFile:                envOrDefault("LOG_FILE", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("optional env var not set, feature disabled", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid bool env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultSymbols(key string, defaultVal []string) []string {
	if v := os.Getenv(key); v != "" {
		if symbols := domain.ParseSymbols(v); len(symbols) > 0 {
			return symbols
		}
		slog.Warn("empty symbol list env var, using default", "key", key, "value", v)
	}
	return defaultVal
}

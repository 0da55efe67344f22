package config

import (
	"os"
	"strconv"
	"time"
)

type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Aggregation
	QuoteDebounce time.Duration
	// Transaction lifecycle
	PollInterval  time.Duration
	PendingMaxAge time.Duration
	// Redis (pending store, reference cache, idempotency)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration
	RefCacheTTL    time.Duration
	// Providers; "fake" swaps every adapter for the fixed-rate fake.
	Providers string
	Meld      ProviderConfig
	OnRamp    ProviderConfig
	MoonPay   ProviderConfig
	Changelly ProviderConfig
	Exolix    ProviderConfig
	FinchPay  ProviderConfig
	// Tenant identifiers
	MeldPartnerID string
	OnRampAppID   string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func durMS(key string, defMS int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(defMS)), defMS)) * time.Millisecond
}

func providerEnv(prefix, defBase string) ProviderConfig {
	return ProviderConfig{
		BaseURL: getEnv(prefix+"_BASE_URL", defBase),
		APIKey:  getEnv(prefix+"_API_KEY", ""),
	}
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:            getEnv("ENV", "local"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		QuoteDebounce:  durMS("QUOTE_DEBOUNCE_MS", 300),
		PollInterval:   durMS("POLL_INTERVAL_MS", 7000),
		PendingMaxAge:  durMS("PENDING_MAX_AGE_MS", 3600000),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        atoiDef(getEnv("REDIS_DB", "0"), 0),
		IdempotencyTTL: durMS("IDEMPOTENCY_TTL_MS", 86400000),
		RefCacheTTL:    durMS("REF_CACHE_TTL_MS", 86400000),
		Providers:      getEnv("PROVIDERS", "fake"),
		Meld:           providerEnv("MELD", "https://api.meld.io"),
		OnRamp:         providerEnv("ONRAMP", "https://api.onramp.money"),
		MoonPay:        providerEnv("MOONPAY", "https://api.moonpay.com"),
		Changelly:      providerEnv("CHANGELLY", "https://api.changelly.com"),
		Exolix:         providerEnv("EXOLIX", "https://exolix.com"),
		FinchPay:       providerEnv("FINCHPAY", "https://api.finchpay.io"),
		MeldPartnerID:  getEnv("MELD_PARTNER_ID", ""),
		OnRampAppID:    getEnv("ONRAMP_APP_ID", ""),
	}
}

// Package bootstrap loads process configuration from the environment and
// wires the service's dependencies together at startup.
package bootstrap

import (
	"os"
	"strconv"
	"time"
)

// Config is populated once from the environment at process start; every
// field has a sensible local-development default so the service boots
// without a .env file.
type Config struct {
	Port string
	Env  string

	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	// The four pool-bound fields below are loaded from the environment but
	// NewServer does not apply them to the Postgres pool, which runs with
	// database/sql's own defaults.
	DBMaxPoolConns     int
	DBMinPoolConns     int
	DBAcquireTimeoutMs int
	DBConnMaxIdleMs    int

	CacheHost                string
	CachePort                string
	CachePassword            string
	CacheDB                  int
	CacheKeyPrefix           string
	CacheIdempotencyTTL      time.Duration
	CacheLockTTL             time.Duration
	CacheLockMaxRetries      int
	CacheLockRetryIntervalMs time.Duration
}

// NewConfigFromEnv loads a Config from the environment, falling back to
// development-friendly defaults for anything unset.
func NewConfigFromEnv() *Config {
	return &Config{
		Port: envOr("PORT", "8080"),
		Env:  envOr("ENV", "development"),

		DBHost:             envOr("DB_HOST", "localhost"),
		DBPort:             envOr("DB_PORT", "5432"),
		DBUser:             envOr("DB_USER", "postgres"),
		DBPassword:         envOr("DB_PASSWORD", "postgres"),
		DBName:             envOr("DB_NAME", "walletledger"),
		DBMaxPoolConns:     envIntOr("DB_MAX_POOL_CONNS", 20),
		DBMinPoolConns:     envIntOr("DB_MIN_POOL_CONNS", 5),
		DBAcquireTimeoutMs: envIntOr("DB_ACQUIRE_TIMEOUT_MS", 5000),
		DBConnMaxIdleMs:    envIntOr("DB_CONN_MAX_IDLE_MS", 60000),

		CacheHost:                envOr("CACHE_HOST", "localhost"),
		CachePort:                envOr("CACHE_PORT", "6379"),
		CachePassword:            envOr("CACHE_PASSWORD", ""),
		CacheDB:                  envIntOr("CACHE_DB", 0),
		CacheKeyPrefix:           envOr("CACHE_KEY_PREFIX", "wallet:"),
		CacheIdempotencyTTL:      time.Duration(envIntOr("CACHE_IDEMPOTENCY_TTL_SECONDS", 24*60*60)) * time.Second,
		CacheLockTTL:             time.Duration(envIntOr("CACHE_LOCK_TTL_SECONDS", 30)) * time.Second,
		CacheLockMaxRetries:      envIntOr("CACHE_LOCK_MAX_RETRIES", 50),
		CacheLockRetryIntervalMs: time.Duration(envIntOr("CACHE_LOCK_RETRY_INTERVAL_MS", 100)) * time.Millisecond,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

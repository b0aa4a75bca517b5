// Package config loads application configuration from MEMBERBASE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/memberbase/memberbase/pkg/observability"
	"github.com/memberbase/memberbase/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Quotas configuration
	Quotas QuotaConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// QuotaConfig caps resource cardinality per owner and per company.
// A non-positive value means unlimited.
type QuotaConfig struct {
	MaxCompaniesPerOwner   int64
	MaxLocationsPerCompany int64
	MaxRolesPerCompany     int64

	// PermissionCacheTTL bounds how long a cached allow/deny verdict may
	// outlive the role change that would flip it.
	PermissionCacheTTL time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Quotas:        loadQuotaConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MEMBERBASE_HOST", "0.0.0.0"),
		Port:            getEnv("MEMBERBASE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MEMBERBASE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MEMBERBASE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MEMBERBASE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MEMBERBASE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MEMBERBASE_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if dbURL := getEnv("MEMBERBASE_POSTGRES_URL", ""); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if maxConns := getEnvInt("MEMBERBASE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("MEMBERBASE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("MEMBERBASE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.ConnTimeout = timeout
	}

	if redisURL := getEnv("MEMBERBASE_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("MEMBERBASE_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("MEMBERBASE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("MEMBERBASE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	if s3Endpoint := getEnv("MEMBERBASE_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("MEMBERBASE_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("MEMBERBASE_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("MEMBERBASE_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("MEMBERBASE_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("MEMBERBASE_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	if attempts := getEnvInt("MEMBERBASE_STORAGE_RETRY_ATTEMPTS", 0); attempts > 0 {
		cfg.RetryAttempts = attempts
	}
	if pause := getEnvDuration("MEMBERBASE_STORAGE_RETRY_PAUSE", 0); pause > 0 {
		cfg.RetryPause = pause
	}

	return cfg
}

// loadQuotaConfig loads quota limits from environment
func loadQuotaConfig() QuotaConfig {
	return QuotaConfig{
		MaxCompaniesPerOwner:   getEnvInt64("MEMBERBASE_MAX_COMPANIES_PER_OWNER", 5),
		MaxLocationsPerCompany: getEnvInt64("MEMBERBASE_MAX_LOCATIONS_PER_COMPANY", 20),
		MaxRolesPerCompany:     getEnvInt64("MEMBERBASE_MAX_ROLES_PER_COMPANY", 500),
		PermissionCacheTTL:     getEnvDuration("MEMBERBASE_PERMISSION_CACHE_TTL", 5*time.Minute),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("MEMBERBASE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("MEMBERBASE_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Storage.DatabaseURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64 returns a 64-bit integer environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

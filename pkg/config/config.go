// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/partdex/partdex/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Search        SearchConfig
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

// DatabaseConfig holds record-store connection configuration
type DatabaseConfig struct {
	URL         string
	ReplicaURLs string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// CacheConfig selects and sizes the facet cache backend
type CacheConfig struct {
	// Backend is "memory" or "redis"
	Backend       string
	TTL           time.Duration
	MaxEntries    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// SearchConfig holds ranking tunables. The similarity floors are
// configurable defaults, not contract.
type SearchConfig struct {
	TitleSimilarity float64
	SKUSimilarity   float64
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PARTDEX_HOST", "0.0.0.0"),
			Port:            getEnv("PARTDEX_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PARTDEX_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PARTDEX_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("PARTDEX_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PARTDEX_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("PARTDEX_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("PARTDEX_POSTGRES_URL", ""),
			ReplicaURLs: getEnv("PARTDEX_POSTGRES_REPLICA_URLS", ""),
			MaxConns:    getEnvInt("PARTDEX_POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("PARTDEX_POSTGRES_MIN_CONNS", 2),
			Timeout:     getEnvDuration("PARTDEX_POSTGRES_TIMEOUT", 5*time.Second),
			MaxLifetime: getEnvDuration("PARTDEX_POSTGRES_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime: getEnvDuration("PARTDEX_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			Backend:       getEnv("PARTDEX_CACHE_BACKEND", "memory"),
			TTL:           getEnvDuration("PARTDEX_FACET_CACHE_TTL", 30*time.Second),
			MaxEntries:    getEnvInt("PARTDEX_FACET_CACHE_ENTRIES", 500),
			RedisAddr:     getEnv("PARTDEX_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("PARTDEX_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("PARTDEX_REDIS_DB", 0),
		},
		Search: SearchConfig{
			TitleSimilarity: getEnvFloat("PARTDEX_TITLE_SIMILARITY", 0.15),
			SKUSimilarity:   getEnvFloat("PARTDEX_SKU_SIMILARITY", 0.30),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("PARTDEX_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("PARTDEX_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
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
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis cache backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}

	if c.Search.TitleSimilarity <= 0 || c.Search.TitleSimilarity >= 1 {
		return fmt.Errorf("title similarity threshold must be in (0, 1)")
	}
	if c.Search.SKUSimilarity <= 0 || c.Search.SKUSimilarity >= 1 {
		return fmt.Errorf("sku similarity threshold must be in (0, 1)")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("facet cache TTL must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("facet cache entry bound must be positive")
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

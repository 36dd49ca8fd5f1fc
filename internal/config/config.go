package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/infrastructure/database"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Storage drivers for the document directory and the users table.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the whole application configuration, populated from environment
// variables.
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Database database.DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Media    MediaConfig
	Feed     FeedConfig
	Editor   EditorConfig
	Stream   StreamConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type StorageConfig struct {
	Driver string // postgres, memory
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

type MediaConfig struct {
	MaxImageBytes int64
}

type FeedConfig struct {
	Limit int
}

type EditorConfig struct {
	SessionTTL time.Duration
}

type StreamConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Nwitter API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", StoragePostgres),
		},
		Database: database.DBConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvInt("DB_PORT", 5432),
			Username:          getEnv("DB_USER", "nwitter"),
			Password:          getEnv("DB_PASSWORD", ""),
			DBName:            getEnv("DB_NAME", "nwitter_dev"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvInt("DB_MAX_CONNECTIONS", 25)),
			MinConns:          int32(getEnvInt("DB_MIN_CONNECTIONS", 5)),
			MaxConnLifetime:   getEnvDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvDuration("DB_MAX_CONN_IDLE_TIME", time.Minute),
			HealthCheckPeriod: getEnvDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			MaxRetries:        getEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:        getEnvDuration("DB_RETRY_DELAY", time.Second),
			ConnectTimeout:    getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTTL: getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
		},
		Media: MediaConfig{
			MaxImageBytes: int64(getEnvInt("MEDIA_MAX_IMAGE_BYTES", 1<<20)),
		},
		Feed: FeedConfig{
			Limit: getEnvInt("FEED_LIMIT", 25),
		},
		Editor: EditorConfig{
			SessionTTL: getEnvDuration("EDITOR_SESSION_TTL", 15*time.Minute),
		},
		Stream: StreamConfig{
			PingInterval: getEnvDuration("STREAM_PING_INTERVAL", 30*time.Second),
			WriteTimeout: getEnvDuration("STREAM_WRITE_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage.Driver)
	}

	if c.Feed.Limit <= 0 {
		return fmt.Errorf("FEED_LIMIT must be positive")
	}
	if c.Media.MaxImageBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_IMAGE_BYTES must be positive")
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}

	if c.IsProduction() {
		if c.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Storage.Driver == StoragePostgres && c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
		if c.Storage.Driver == StorageMemory {
			log.Warn().Msg("STORAGE_DRIVER=memory in production: data is lost on restart")
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid integer, using default")
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Msg("Invalid duration, using default")
		return defaultValue
	}
	return value
}

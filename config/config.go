package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Cleanup  CleanupConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type StorageConfig struct {
	Bucket   string
	Region   string
	Endpoint string // set for MinIO-style local storage, empty for AWS
}

type RedisConfig struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

type CleanupConfig struct {
	RetentionDays int
	BatchSize     int
	MaxPerRun     int
	LockStale     time.Duration
	CronSpec      string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "mapsketch"),
		},
		Storage: StorageConfig{
			Bucket:   getEnv("STORAGE_BUCKET", "mapsketch-tiles"),
			Region:   getEnv("STORAGE_REGION", "ap-northeast-1"),
			Endpoint: getEnv("STORAGE_ENDPOINT", ""),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			TTL:     getEnvAsDuration("REDIS_TTL", time.Hour),
		},
		Cleanup: CleanupConfig{
			RetentionDays: getEnvAsInt("CLEANUP_RETENTION_DAYS", 30),
			BatchSize:     getEnvAsInt("CLEANUP_BATCH_SIZE", 100),
			MaxPerRun:     getEnvAsInt("CLEANUP_MAX_PER_RUN", 1000),
			LockStale:     getEnvAsDuration("CLEANUP_LOCK_STALE", 30*time.Minute),
			CronSpec:      getEnv("CLEANUP_CRON", "0 0 3 * * *"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}

	if c.Cleanup.RetentionDays <= 0 {
		return fmt.Errorf("CLEANUP_RETENTION_DAYS must be positive")
	}

	return nil
}

// PgxDSN is the URL form the pgx pool expects.
func (c *DatabaseConfig) PgxDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name,
	)
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

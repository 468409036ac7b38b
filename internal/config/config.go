// Package config loads the server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultMaxUploadSize bounds one upload request body.
const DefaultMaxUploadSize = 256 * humanize.MiByte

// Config represents the application configuration
type Config struct {
	Environment   string
	Port          string
	Host          string
	FileRoot      string
	MaxUploadSize int64
	DatabaseURL   string
	Cache         CacheConfig
	Storage       StorageConfig
	Logging       *LoggingConfig
	Server        *ServerConfig
}

// CacheConfig configures the Redis/Valkey listing and thumbnail cache.
type CacheConfig struct {
	Enabled         bool
	Address         string
	Password        string
	Database        int
	DefaultTTL      time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
}

// StorageConfig configures the object storage mirror of uploaded files.
type StorageConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Region          string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load creates a new configuration from environment variables with validation
func Load() (*Config, error) {
	config := &Config{
		Environment:   getEnv("GO_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		Host:          getEnv("HOST", "0.0.0.0"),
		FileRoot:      getEnv("FILE_ROOT", "./files"),
		MaxUploadSize: parseSize(getEnv("MAX_UPLOAD_SIZE", ""), DefaultMaxUploadSize),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			Address:         getEnv("CACHE_ADDRESS", "localhost:6379"),
			Password:        getEnv("CACHE_PASSWORD", ""),
			Database:        getEnvInt("CACHE_DATABASE", 0),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
			MaxRetries:      getEnvInt("CACHE_MAX_RETRIES", 3),
			MinRetryBackoff: getEnvDuration("CACHE_MIN_RETRY_BACKOFF", 8*time.Millisecond),
			MaxRetryBackoff: getEnvDuration("CACHE_MAX_RETRY_BACKOFF", 512*time.Millisecond),
			DialTimeout:     getEnvDuration("CACHE_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     getEnvDuration("CACHE_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    getEnvDuration("CACHE_WRITE_TIMEOUT", 3*time.Second),
			PoolSize:        getEnvInt("CACHE_POOL_SIZE", 10),
			MinIdleConns:    getEnvInt("CACHE_MIN_IDLE_CONNS", 2),
			PoolTimeout:     getEnvDuration("CACHE_POOL_TIMEOUT", 4*time.Second),
		},
		Storage: StorageConfig{
			Enabled:         getEnvBool("STORAGE_ENABLED", false),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "file-gallery"),
			UseSSL:          getEnvBool("STORAGE_USE_SSL", false),
			Region:          getEnv("STORAGE_REGION", "us-east-1"),
		},
		Logging: &LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Server: &ServerConfig{
			ReadTimeout:  getEnvDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getEnvDuration("SERVER_TIMEOUT", 60*time.Second),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// JournalEnabled reports whether uploads are recorded in Postgres.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

// getEnvDuration returns the zero duration for malformed values so that
// validation reports them instead of silently using the default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

// parseSize parses sizes like "10MB", "512KiB" or "1048576" into bytes.
// Malformed values yield -1.
func parseSize(sizeStr string, defaultValue int64) int64 {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return defaultValue
	}
	n, err := humanize.ParseBytes(sizeStr)
	if err != nil {
		return -1
	}
	return int64(n)
}

// MustLoad loads configuration and panics on error
func MustLoad() *Config {
	config, err := Load()
	if err != nil {
		panic(err)
	}
	return config
}

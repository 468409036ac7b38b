package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("configuration validation failed: %s", strings.Join(messages, "; "))
}

// Has checks if ValidationErrors contains any errors
func (ve ValidationErrors) Has() bool {
	return len(ve) > 0
}

func (ve *ValidationErrors) add(field string, value interface{}, message string) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message})
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateFiles()...)
	errs = append(errs, c.validateDatabase()...)

	if c.Cache.Enabled {
		errs = append(errs, c.validateCache()...)
	}
	if c.Storage.Enabled {
		errs = append(errs, c.validateStorage()...)
	}
	if c.Logging != nil {
		errs = append(errs, c.validateLogging()...)
	}
	if c.Server != nil {
		errs = append(errs, c.validateServerTimeouts()...)
	}

	if errs.Has() {
		return errs
	}
	return nil
}

func (c *Config) validateServer() ValidationErrors {
	var errs ValidationErrors

	if c.Port == "" {
		errs.add("port", c.Port, "port cannot be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil {
		errs.add("port", c.Port, "port must be a valid integer")
	} else if port < 1 || port > 65535 {
		errs.add("port", c.Port, "port must be between 1 and 65535")
	}

	validEnvs := []string{"development", "production", "test", "staging"}
	if c.Environment != "" && !slices.Contains(validEnvs, c.Environment) {
		errs.add("environment", c.Environment, "environment must be one of: development, production, test, staging")
	}

	return errs
}

func (c *Config) validateFiles() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(c.FileRoot) == "" {
		errs.add("file_root", c.FileRoot, "file root cannot be empty")
	}
	if c.MaxUploadSize <= 0 {
		errs.add("max_upload_size", c.MaxUploadSize, "max upload size must be a positive size such as 100MB")
	}

	return errs
}

// validateDatabase checks DATABASE_URL when set. An empty URL disables the
// upload journal.
func (c *Config) validateDatabase() ValidationErrors {
	var errs ValidationErrors

	if c.DatabaseURL == "" {
		return errs
	}

	parsedURL, err := url.Parse(c.DatabaseURL)
	if err != nil {
		errs.add("database_url", "[REDACTED]", "database URL must be a valid URL")
		return errs
	}

	if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
		errs.add("database_url", parsedURL.Scheme, "database URL must use postgres or postgresql scheme")
	}
	if parsedURL.Host == "" {
		errs.add("database_url", parsedURL.Redacted(), "database URL must include host")
	}
	if parsedURL.Path == "" || parsedURL.Path == "/" {
		errs.add("database_url", parsedURL.Redacted(), "database URL must include database name")
	}

	return errs
}

func (c *Config) validateCache() ValidationErrors {
	var errs ValidationErrors

	if c.Cache.Address == "" {
		errs.add("cache.address", c.Cache.Address, "cache address cannot be empty")
	}
	if c.Cache.Database < 0 || c.Cache.Database > 15 {
		errs.add("cache.database", c.Cache.Database, "cache database must be between 0 and 15")
	}
	if c.Cache.DefaultTTL <= 0 {
		errs.add("cache.default_ttl", c.Cache.DefaultTTL, "cache TTL must be greater than 0")
	}
	if c.Cache.PoolSize < 1 {
		errs.add("cache.pool_size", c.Cache.PoolSize, "cache pool size must be at least 1")
	}

	return errs
}

func (c *Config) validateStorage() ValidationErrors {
	var errs ValidationErrors

	if c.Storage.Endpoint == "" {
		errs.add("storage.endpoint", c.Storage.Endpoint, "storage endpoint cannot be empty")
	}

	if c.Storage.BucketName == "" {
		errs.add("storage.bucket_name", c.Storage.BucketName, "storage bucket name cannot be empty")
	} else if !isValidBucketName(c.Storage.BucketName) {
		errs.add("storage.bucket_name", c.Storage.BucketName,
			"storage bucket name must be 3-63 characters, lowercase alphanumeric and hyphens only")
	}

	if c.Environment == "production" {
		if c.Storage.AccessKeyID == "minioadmin" {
			errs.add("storage.access_key_id", c.Storage.AccessKeyID,
				"default storage access key must not be used in production")
		}
		if c.Storage.SecretAccessKey == "minioadmin" {
			errs.add("storage.secret_access_key", "[REDACTED]",
				"default storage secret key must not be used in production")
		}
	}

	return errs
}

func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Logging.Level)) {
		errs.add("logging.level", c.Logging.Level, "logging level must be one of: debug, info, warn, error")
	}

	validFormats := []string{"json", "text", "console"}
	if !slices.Contains(validFormats, strings.ToLower(c.Logging.Format)) {
		errs.add("logging.format", c.Logging.Format, "logging format must be one of: json, text, console")
	}

	return errs
}

func (c *Config) validateServerTimeouts() ValidationErrors {
	var errs ValidationErrors

	if c.Server.ReadTimeout <= 0 {
		errs.add("server.read_timeout", c.Server.ReadTimeout, "read timeout must be greater than 0")
	} else if c.Server.ReadTimeout > 5*time.Minute {
		errs.add("server.read_timeout", c.Server.ReadTimeout, "read timeout should not exceed 5 minutes")
	}

	// uploads of large files need a generous write window
	if c.Server.WriteTimeout <= 0 {
		errs.add("server.write_timeout", c.Server.WriteTimeout, "write timeout must be greater than 0")
	} else if c.Server.WriteTimeout > 30*time.Minute {
		errs.add("server.write_timeout", c.Server.WriteTimeout, "write timeout should not exceed 30 minutes")
	}

	if c.Server.IdleTimeout <= 0 {
		errs.add("server.idle_timeout", c.Server.IdleTimeout, "idle timeout must be greater than 0")
	}

	return errs
}

// isValidBucketName validates S3/MinIO bucket naming rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}

	if !isLowerAlphaNum(name[0]) || !isLowerAlphaNum(name[len(name)-1]) {
		return false
	}

	for i := 0; i < len(name); i++ {
		b := name[i]
		if !isLowerAlphaNum(b) && b != '-' {
			return false
		}
		if b == '-' && name[i-1] == '-' {
			return false
		}
	}

	return true
}

func isLowerAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// MustValidate validates the configuration and panics on error
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("configuration validation failed: %v", err))
	}
}

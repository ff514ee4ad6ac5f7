// Package config provides centralized configuration management for the application.
// It loads configuration from an optional YAML file and environment variables,
// applies defaults, and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Import   ImportConfig    `yaml:"import"`
	Rate     RateLimitConfig `yaml:"rate"`
	Backup   BackupConfig    `yaml:"backup"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects where the client database lives.
type StoreConfig struct {
	// Backend is one of memory, file, redis, sql, s3 (default: file)
	Backend string `yaml:"backend" env:"STORE_BACKEND" default:"file"`

	// Path is the JSON file of the file backend
	Path string `yaml:"path" env:"STORE_PATH" default:"data/bodymetrics.json"`

	// Key names the database document in redis, sql and s3
	Key string `yaml:"key" env:"STORE_KEY" default:"bodymetrics_db_v1"`

	// RedisURL is the redis backend address, e.g. redis://localhost:6379/0
	RedisURL string `yaml:"redis_url" env:"STORE_REDIS_URL" envAlt:"REDIS_URL"`

	// SQLDriver is one of pgx, sqlite, mysql (default: sqlite)
	SQLDriver string `yaml:"sql_driver" env:"STORE_SQL_DRIVER" default:"sqlite"`

	// SQLDSN is the connection string of the sql backend
	SQLDSN string `yaml:"sql_dsn" env:"STORE_SQL_DSN" envAlt:"DATABASE_URL"`

	// SQLTable holds the database document (default: bodymetrics_blobs)
	SQLTable string `yaml:"sql_table" env:"STORE_SQL_TABLE" default:"bodymetrics_blobs"`

	// S3Bucket and S3Prefix locate the document for the s3 backend
	S3Bucket string `yaml:"s3_bucket" env:"STORE_S3_BUCKET"`
	S3Prefix string `yaml:"s3_prefix" env:"STORE_S3_PREFIX" default:"live"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum request body in bytes (default: 20MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// MaxFiles is the maximum number of device files per import (default: 50)
	MaxFiles int `yaml:"max_files" env:"IMPORT_MAX_FILES" default:"50"`

	// MaxConcurrent is the maximum number of parallel imports (default: 4)
	MaxConcurrent int `yaml:"max_concurrent" env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an import slot (default: 10s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// ParseWorkers bounds concurrent file parses within one import (default: 4)
	ParseWorkers int `yaml:"parse_workers" env:"IMPORT_PARSE_WORKERS" default:"4"`

	// Timeout is the maximum duration of one import (default: 2m)
	Timeout time.Duration `yaml:"timeout" env:"IMPORT_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds per-client rate limits for import endpoints.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// ImportsPerMinute is requests per minute per client IP on import routes (default: 20)
	ImportsPerMinute int `yaml:"imports_per_minute" env:"RATE_LIMIT_IMPORTS" default:"20"`

	// RedisURL shares counters across instances; empty keeps them in memory
	RedisURL string `yaml:"redis_url" env:"RATE_LIMIT_REDIS_URL"`
}

// BackupConfig holds remote backup archive settings.
type BackupConfig struct {
	// S3Bucket enables archiving when set
	S3Bucket string `yaml:"s3_bucket" env:"BACKUP_S3_BUCKET"`

	// S3Prefix is the key prefix of archived snapshots (default: backups)
	S3Prefix string `yaml:"s3_prefix" env:"BACKUP_S3_PREFIX" default:"backups"`

	// Region is the AWS region for every S3 client (default: us-east-1)
	Region string `yaml:"region" env:"AWS_REGION" default:"us-east-1"`

	// Interval is how often a snapshot is archived (default: 24h)
	Interval time.Duration `yaml:"interval" env:"BACKUP_INTERVAL" default:"24h"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey enables X-API-Key authentication on the API (default: false)
	RequireAPIKey bool `yaml:"require_api_key" env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`

	// CORSOrigins is a comma-separated list of allowed browser origins
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" default:"http://localhost:5173"`

	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

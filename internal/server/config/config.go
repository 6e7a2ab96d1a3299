// Package config handles configuration for the server component,
// including defaults, a YAML/JSON file overlay, environment variables and
// command-line flags.
package config

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config holds runtime settings for the gophhabits server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses (empty gRPC address disables it).
//   - DatabaseDSN: SQLite file path, or a postgres:// URL (pgx).
//   - StatsTimezone: zone whose calendar defines "today" for statistics.
//   - StatsWorkers: parallelism of the habits-with-stats listing.
//   - Backup* / S3*: JSON snapshot export to an S3-compatible backend.
type Config struct {
	EndpointAddrHTTP string        `koanf:"endpoint_addr_http"`
	EndpointAddrGRPC string        `koanf:"endpoint_addr_grpc"`
	DatabaseDSN      string        `koanf:"database_dsn"`
	MigrateOnStart   bool          `koanf:"migrate_on_start"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins      []string      `koanf:"cors_origins"`
	RateLimit        float64       `koanf:"rate_limit"`

	LogLevel      string `koanf:"log_level"`
	LogFormat     string `koanf:"log_format"`
	LogFile       string `koanf:"log_file"`
	LogMaxSizeMB  int    `koanf:"log_max_size_mb"`
	LogMaxBackups int    `koanf:"log_max_backups"`
	LogMaxAgeDays int    `koanf:"log_max_age_days"`

	StatsTimezone string `koanf:"stats_timezone"`
	StatsWorkers  int    `koanf:"stats_workers"`

	BackupEnabled  bool          `koanf:"backup_enabled"`
	BackupInterval time.Duration `koanf:"backup_interval"`
	S3RootUser     string        `koanf:"s3_root_user"`
	S3RootPassword string        `koanf:"s3_root_password"`
	S3Bucket       string        `koanf:"s3_bucket"`
	S3Region       string        `koanf:"s3_region"`
	S3BaseEndpoint string        `koanf:"s3_base_endpoint"`
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: S3 credentials are local MinIO values and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = "gophhabits.db"
	c.MigrateOnStart = true
	c.ShutdownTimeout = 10 * time.Second
	c.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	c.RateLimit = 0

	c.LogLevel = "info"
	c.LogFormat = "json"
	c.LogFile = ""
	c.LogMaxSizeMB = 100
	c.LogMaxBackups = 5
	c.LogMaxAgeDays = 30

	c.StatsTimezone = "Local"
	c.StatsWorkers = 4

	c.BackupEnabled = false
	c.BackupInterval = 24 * time.Hour
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "habits"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// Location resolves StatsTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid stats_timezone %q: %w", c.StatsTimezone, err)
	}
	return loc, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.EndpointAddrHTTP == "" {
		return fmt.Errorf("endpoint_addr_http must not be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database_dsn must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log_format %q", c.LogFormat)
	}
	if c.StatsWorkers < 1 {
		return fmt.Errorf("stats_workers must be positive, got %d", c.StatsWorkers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if c.BackupEnabled {
		if c.S3Bucket == "" {
			return fmt.Errorf("s3_bucket is required when backups are enabled")
		}
		if c.BackupInterval < 0 {
			return fmt.Errorf("backup_interval must not be negative")
		}
	}
	return nil
}

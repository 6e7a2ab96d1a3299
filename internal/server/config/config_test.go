package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8000", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "gophhabits.db", c.DatabaseDSN)
	assert.True(t, c.MigrateOnStart)
	assert.Equal(t, 10*time.Second, c.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, c.CORSOrigins)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, "Local", c.StatsTimezone)
	assert.Equal(t, 4, c.StatsWorkers)
	assert.False(t, c.BackupEnabled)
	assert.Equal(t, 24*time.Hour, c.BackupInterval)
	assert.Equal(t, "admin", c.S3RootUser)
	assert.Equal(t, "secretpassword", c.S3RootPassword)
	assert.Equal(t, "habits", c.S3Bucket)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.Equal(t, "http://127.0.0.1:9000/", c.S3BaseEndpoint)

	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty http address", func(c *Config) { c.EndpointAddrHTTP = "" }},
		{"empty dsn", func(c *Config) { c.DatabaseDSN = "" }},
		{"unknown timezone", func(c *Config) { c.StatsTimezone = "Mars/Olympus_Mons" }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero workers", func(c *Config) { c.StatsWorkers = 0 }},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"backup without bucket", func(c *Config) { c.BackupEnabled = true; c.S3Bucket = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	c := Config{StatsTimezone: "UTC"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

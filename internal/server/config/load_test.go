package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_UsesDefaultsWithoutSources(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, c))
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
endpoint_addr_http: "127.0.0.1:9090"
database_dsn: "postgres://u:p@db:5432/habits?sslmode=disable"
shutdown_timeout: 3s
cors_origins:
  - https://habits.example
stats_timezone: Europe/Riga
stats_workers: 8
rate_limit: 2.5
backup_enabled: true
backup_interval: 1h
s3_bucket: snapshots
`)

	c, err := LoadConfig(newFlagSet(t, "-c", path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", c.EndpointAddrHTTP)
	assert.Equal(t, "postgres://u:p@db:5432/habits?sslmode=disable", c.DatabaseDSN)
	assert.Equal(t, 3*time.Second, c.ShutdownTimeout)
	assert.Equal(t, []string{"https://habits.example"}, c.CORSOrigins)
	assert.Equal(t, "Europe/Riga", c.StatsTimezone)
	assert.Equal(t, 8, c.StatsWorkers)
	assert.Equal(t, 2.5, c.RateLimit)
	assert.True(t, c.BackupEnabled)
	assert.Equal(t, time.Hour, c.BackupInterval)
	assert.Equal(t, "snapshots", c.S3Bucket)

	// untouched keys keep their defaults
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := writeTempFile(t, "config.json", `{"endpoint_addr_grpc": "", "database_dsn": "data/habits.db", "log_format": "console"}`)

	c, err := LoadConfig(newFlagSet(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "", c.EndpointAddrGRPC)
	assert.Equal(t, "data/habits.db", c.DatabaseDSN)
	assert.Equal(t, "console", c.LogFormat)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
endpoint_addr_http: ":1111"
database_dsn: "file.db"
log_level: warn
`)

	t.Setenv("GOPHHABITS_DATABASE_DSN", "env.db")
	t.Setenv("GOPHHABITS_LOG_LEVEL", "debug")
	t.Setenv("GOPHHABITS_STATS_WORKERS", "2")
	t.Setenv("GOPHHABITS_CORS_ORIGINS", "https://a.example, https://b.example")

	c, err := LoadConfig(newFlagSet(t, "-c", path, "-l", "error"))
	require.NoError(t, err)

	assert.Equal(t, ":1111", c.EndpointAddrHTTP, "file over defaults")
	assert.Equal(t, "env.db", c.DatabaseDSN, "env over file")
	assert.Equal(t, "error", c.LogLevel, "flags over env")
	assert.Equal(t, 2, c.StatsWorkers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestLoadConfig_Flags(t *testing.T) {
	fs := newFlagSet(t,
		"-a", "127.0.0.1:8080", "-g", "", "-d", "habits.sqlite", "-z", "UTC", "-w", "3",
		"-u", "user", "-p", "password", "-b", "bucket", "-r", "us-west-1", "-e", "http://endpoint",
	)

	c, err := LoadConfig(fs)
	require.NoError(t, err)

	want := &Config{}
	want.LoadDefaults()
	want.EndpointAddrHTTP = "127.0.0.1:8080"
	want.EndpointAddrGRPC = ""
	want.DatabaseDSN = "habits.sqlite"
	want.StatsTimezone = "UTC"
	want.StatsWorkers = 3
	want.S3RootUser = "user"
	want.S3RootPassword = "password"
	want.S3Bucket = "bucket"
	want.S3Region = "us-west-1"
	want.S3BaseEndpoint = "http://endpoint"

	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(newFlagSet(t, "-c", filepath.Join(t.TempDir(), "nope.yaml")))
		require.Error(t, err)
	})

	t.Run("invalid file", func(t *testing.T) {
		path := writeTempFile(t, "bad.yaml", "endpoint_addr_http: [unclosed")
		_, err := LoadConfig(newFlagSet(t, "-c", path))
		require.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := LoadConfig(newFlagSet(t, "-w", "0"))
		require.Error(t, err)
	})

	t.Run("config path from env", func(t *testing.T) {
		path := writeTempFile(t, "env.yaml", `stats_timezone: "Nowhere/Land"`)
		t.Setenv("GOPHHABITS_CONFIG", path)
		_, err := LoadConfig(nil)
		require.Error(t, err)
	})
}

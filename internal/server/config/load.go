package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable the loader reads, e.g.
// GOPHHABITS_DATABASE_DSN -> database_dsn.
const EnvPrefix = "GOPHHABITS_"

// ConfigFlag names the flag holding the config file path.
const ConfigFlag = "config"

// flagKeys maps command-line flags to config keys.
//
//	-a  endpoint_addr_http
//	-g  endpoint_addr_grpc
//	-d  database_dsn
//	-l  log_level
//	-z  stats_timezone
//	-w  stats_workers
//	-u  s3_root_user
//	-p  s3_root_password
//	-b  s3_bucket
//	-r  s3_region
//	-e  s3_base_endpoint
var flagKeys = []struct {
	name, short, key, usage string
}{
	{"http-addr", "a", "endpoint_addr_http", "address and port to serve the HTTP API"},
	{"grpc-addr", "g", "endpoint_addr_grpc", "address and port to serve gRPC health (empty disables)"},
	{"dsn", "d", "database_dsn", "database DSN (SQLite path or postgres:// URL)"},
	{"log-level", "l", "log_level", "log level (debug, info, warn, error)"},
	{"timezone", "z", "stats_timezone", "time zone that defines today for statistics"},
	{"workers", "w", "stats_workers", "parallel workers for habit statistics"},
	{"s3-user", "u", "s3_root_user", "S3 root user"},
	{"s3-password", "p", "s3_root_password", "S3 root password"},
	{"s3-bucket", "b", "s3_bucket", "S3 bucket"},
	{"s3-region", "r", "s3_region", "S3 region"},
	{"s3-endpoint", "e", "s3_base_endpoint", "S3 base endpoint"},
}

// BindFlags registers the server flags on fs. Defaults are left empty so
// that only explicitly passed flags override file and environment values.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP(ConfigFlag, "c", "", "path to a YAML or JSON config file")
	for _, f := range flagKeys {
		fs.StringP(f.name, f.short, "", f.usage)
	}
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally from
// command-line flags. fs may be nil.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	k := koanf.New(".")

	if err := loadFile(k, configPath(fs)); err != nil {
		return nil, err
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "cors_origins" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := loadFlags(k, fs); err != nil {
		return nil, err
	}

	// A configured list replaces the default one instead of merging into it.
	if k.Exists("cors_origins") {
		cfg.CORSOrigins = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configPath(fs *pflag.FlagSet) string {
	if fs != nil {
		if p, err := fs.GetString(ConfigFlag); err == nil && p != "" {
			return p
		}
	}
	return os.Getenv(EnvPrefix + "CONFIG")
}

// loadFile reads a YAML file; JSON documents parse as YAML too.
func loadFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	return nil
}

func loadFlags(k *koanf.Koanf, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for _, f := range flagKeys {
		flag := fs.Lookup(f.name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := k.Set(f.key, flag.Value.String()); err != nil {
			return fmt.Errorf("flag --%s: %w", f.name, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

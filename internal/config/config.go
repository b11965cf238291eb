// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package config loads tutorcab configuration from defaults, a YAML file,
// TUTORCAB_ environment variables and command flags, in that order of precedence.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/logging"
	"github.com/tutorcab/tutorcab/internal/xdg"
)

// EnvPrefix prefixes every environment override. Nested keys use "__",
// so TUTORCAB_STORE__REDIS__ADDR sets store.redis.addr.
const EnvPrefix = "TUTORCAB_"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// DefaultBasePath is the route prefix the existing client calls.
const DefaultBasePath = "/make-server-c3da9688"

const redacted = "REDACTED"

// Config is the effective tutorcab configuration.
type Config struct {
	HTTP       HTTPConfig       `koanf:"http" yaml:"http"`
	Metrics    MetricsConfig    `koanf:"metrics" yaml:"metrics"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
	Store      StoreConfig      `koanf:"store" yaml:"store"`
	Session    SessionConfig    `koanf:"session" yaml:"session"`
	Onboarding OnboardingConfig `koanf:"onboarding" yaml:"onboarding"`
	Auth       AuthConfig       `koanf:"auth" yaml:"auth"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" yaml:"addr"`
	BasePath          string        `koanf:"base_path" yaml:"base_path"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORS              CORSConfig    `koanf:"cors" yaml:"cors"`
}

// CORSConfig lists origin globs allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins" yaml:"allowed_origins"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	Driver         string         `koanf:"driver" yaml:"driver"`
	Prefix         string         `koanf:"prefix" yaml:"prefix"`
	ConnectTimeout time.Duration  `koanf:"connect_timeout" yaml:"connect_timeout"`
	Redis          RedisConfig    `koanf:"redis" yaml:"redis"`
	Postgres       PostgresConfig `koanf:"postgres" yaml:"postgres"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db"`
}

// PostgresConfig configures the postgres driver.
type PostgresConfig struct {
	URL         string `koanf:"url" yaml:"url"`
	AutoMigrate bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// SessionConfig configures session lifetime.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl" yaml:"ttl"`
}

// OnboardingConfig configures the onboarding tracker.
type OnboardingConfig struct {
	Strict bool `koanf:"strict" yaml:"strict"`
}

// AuthConfig configures the registration credential policy.
type AuthConfig struct {
	PhonePattern      string `koanf:"phone_pattern" yaml:"phone_pattern"`
	PasswordMinLength int    `koanf:"password_min_length" yaml:"password_min_length"`
}

// defaults are loaded before any other source.
var defaults = map[string]any{
	"http.addr":                   ":8080",
	"http.base_path":              DefaultBasePath,
	"http.read_header_timeout":    "10s",
	"http.shutdown_timeout":       "5s",
	"http.cors.allowed_origins":   []string{"*"},
	"metrics.addr":                "127.0.0.1:9100",
	"log.format":                  "json",
	"log.level":                   "info",
	"store.driver":                DriverMemory,
	"store.prefix":                "",
	"store.connect_timeout":       "30s",
	"store.redis.addr":            "127.0.0.1:6379",
	"store.redis.password":        "",
	"store.redis.db":              0,
	"store.postgres.url":          "",
	"store.postgres.auto_migrate": false,
	"session.ttl":                 auth.DefaultSessionTTL.String(),
	"onboarding.strict":           false,
	"auth.phone_pattern":          auth.DefaultPhonePattern,
	"auth.password_min_length":    auth.DefaultPasswordMinLength,
}

// flagKeys maps command flag names to config keys.
var flagKeys = map[string]string{
	"http-addr":         "http.addr",
	"base-path":         "http.base_path",
	"metrics-addr":      "metrics.addr",
	"log-format":        "log.format",
	"log-level":         "log.level",
	"store-driver":      "store.driver",
	"redis-addr":        "store.redis.addr",
	"database-url":      "store.postgres.url",
	"auto-migrate":      "store.postgres.auto_migrate",
	"onboarding-strict": "onboarding.strict",
}

// BindFlags registers the overridable flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", ":8080", "API listen address")
	fs.String("base-path", DefaultBasePath, "route prefix for the API")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", "json", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("store-driver", DriverMemory, "key-value backend (memory, redis, postgres)")
	fs.String("redis-addr", "127.0.0.1:6379", "redis address for the redis driver")
	fs.String("database-url", "", "PostgreSQL URL for the postgres driver")
	fs.Bool("auto-migrate", false, "apply pending migrations on start (postgres driver)")
	fs.Bool("onboarding-strict", false, "only allow staying on or advancing one onboarding step")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is an explicit config path. It must exist. Empty falls back to the
	// XDG config file when present.
	File string
	// Flags, when set, overrides keys for flags the user changed.
	Flags *pflag.FlagSet
}

// Load builds the effective configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	path := opts.File
	if path == "" {
		path = xdg.DefaultConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		fs := opts.Flags
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http.addr is required")
	}
	if c.HTTP.BasePath != "" && (!strings.HasPrefix(c.HTTP.BasePath, "/") || strings.HasSuffix(c.HTTP.BasePath, "/")) {
		return invalid("http.base_path", "http.base_path must start and not end with '/', got %q", c.HTTP.BasePath)
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return invalid("http.read_header_timeout", "http.read_header_timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return invalid("http.shutdown_timeout", "http.shutdown_timeout must be positive")
	}
	for _, origin := range c.HTTP.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return invalid("http.cors.allowed_origins", "http.cors.allowed_origins contains an empty pattern")
		}
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level %q is not a level", c.Log.Level)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			return invalid("store.redis.addr", "store.redis.addr is required for the redis driver")
		}
		if c.Store.Redis.DB < 0 {
			return invalid("store.redis.db", "store.redis.db must not be negative")
		}
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			return invalid("store.postgres.url", "store.postgres.url is required for the postgres driver")
		}
	default:
		return invalid("store.driver", "store.driver must be memory, redis or postgres, got %q", c.Store.Driver)
	}
	if c.Store.ConnectTimeout <= 0 {
		return invalid("store.connect_timeout", "store.connect_timeout must be positive")
	}

	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "session.ttl must be positive")
	}

	if _, err := c.CredentialPolicy(); err != nil {
		return invalid("auth", "auth policy: %v", err)
	}
	return nil
}

// CredentialPolicy builds the registration policy from the auth keys.
func (c *Config) CredentialPolicy() (*auth.CredentialPolicy, error) {
	return auth.NewCredentialPolicy(c.Auth.PhonePattern, c.Auth.PasswordMinLength)
}

// Redacted returns a copy with secrets replaced.
func (c *Config) Redacted() Config {
	out := *c
	out.HTTP.CORS.AllowedOrigins = append([]string(nil), c.HTTP.CORS.AllowedOrigins...)
	if out.Store.Redis.Password != "" {
		out.Store.Redis.Password = redacted
	}
	if out.Store.Postgres.URL != "" {
		if u, err := url.Parse(out.Store.Postgres.URL); err == nil {
			out.Store.Postgres.URL = u.Redacted()
		} else {
			out.Store.Postgres.URL = redacted
		}
	}
	return out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}

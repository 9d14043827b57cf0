// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package config loads server configuration from a YAML file and command
// line flags. Flags win over the file; flag defaults fill whatever the file
// leaves unset.
package config

import (
	"os"
	"slices"
	"time"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/tokens"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" jsonschema:"description=API listener"`
	Metrics  MetricsConfig  `koanf:"metrics" jsonschema:"description=Metrics and health listener"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	CORS     CORSConfig     `koanf:"cors"`
	Store    string         `koanf:"store" jsonschema:"enum=postgres,enum=memory"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the metrics and health listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig locates PostgreSQL.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LogConfig selects the log encoding and minimum level.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// AuthConfig tunes token signing and password hashing.
type AuthConfig struct {
	Secret       string        `koanf:"secret" jsonschema:"minLength=32"`
	AccessTTL    time.Duration `koanf:"access_ttl"`
	RefreshTTL   time.Duration `koanf:"refresh_ttl"`
	Hasher       string        `koanf:"hasher" jsonschema:"enum=bcrypt,enum=argon2id"`
	BcryptCost   int           `koanf:"bcrypt_cost" jsonschema:"minimum=4,maximum=31"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

// CORSConfig lists the browser origins allowed to call the API. Entries are
// glob patterns such as "https://*.example.com".
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8080"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Auth: AuthConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   14 * 24 * time.Hour,
			Hasher:       "bcrypt",
			BcryptCost:   12,
			CookieSecure: true,
		},
		Store: StorePostgres,
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"database-url":    "database.url",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"auth-secret":     "auth.secret",
	"access-ttl":      "auth.access_ttl",
	"refresh-ttl":     "auth.refresh_ttl",
	"hasher":          "auth.hasher",
	"bcrypt-cost":     "auth.bcrypt_cost",
	"cookie-secure":   "auth.cookie_secure",
	"allowed-origins": "cors.allowed_origins",
	"store":           "store",
}

// RegisterFlags adds the configuration flags to fs with Default values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health listen address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "minimum log level (debug, info, warn, error)")
	fs.String("auth-secret", "", "HMAC secret for signing tokens (at least 32 bytes)")
	fs.Duration("access-ttl", d.Auth.AccessTTL, "access token lifetime")
	fs.Duration("refresh-ttl", d.Auth.RefreshTTL, "refresh token lifetime")
	fs.String("hasher", d.Auth.Hasher, "password hasher (bcrypt or argon2id)")
	fs.Int("bcrypt-cost", d.Auth.BcryptCost, "bcrypt cost factor")
	fs.Bool("cookie-secure", d.Auth.CookieSecure, "mark the refresh cookie Secure")
	fs.StringSlice("allowed-origins", nil, "CORS origin glob patterns")
	fs.String("store", d.Store, "user store backend (postgres or memory)")
}

// RegisterFlagSubset adds only the named configuration flags to fs.
func RegisterFlagSubset(fs *pflag.FlagSet, names ...string) {
	all := pflag.NewFlagSet("config", pflag.ContinueOnError)
	RegisterFlags(all)
	all.VisitAll(func(f *pflag.Flag) {
		if slices.Contains(names, f.Name) {
			fs.AddFlag(f)
		}
	})
}

// Load is Read followed by Validate.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Read(path, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges path (when non-empty) and flags (when non-nil) over Default
// without validating the result. DATABASE_URL from the environment is used
// when neither source sets database.url. The file must match the schema.
func Read(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateDocument(k.Raw()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", "must be json or text")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return invalid("log.level", "must be debug, info, warn or error")
	}
	switch c.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "is required for the postgres store")
		}
	case StoreMemory:
	default:
		return invalid("store", "must be postgres or memory")
	}
	if len(c.Auth.Secret) < tokens.MinSecretLength {
		return invalid("auth.secret", "must be at least 32 bytes")
	}
	if c.Auth.AccessTTL <= 0 {
		return invalid("auth.access_ttl", "must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return invalid("auth.refresh_ttl", "must be longer than auth.access_ttl")
	}
	if _, err := auth.NewPasswordHasher(c.Auth.Hasher, c.Auth.BcryptCost); err != nil {
		return invalid("auth.hasher", "must be bcrypt or argon2id")
	}
	if c.Auth.Hasher != "argon2id" && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		return invalid("auth.bcrypt_cost", "must be between 4 and 31")
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if _, err := glob.Compile(origin); err != nil {
			return oops.Code("CONFIG_INVALID").
				With("key", "cors.allowed_origins").
				With("pattern", origin).
				Wrap(err)
		}
	}
	return nil
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, msg)
}

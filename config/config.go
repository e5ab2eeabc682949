// Package config loads application configuration from yaml files and the
// environment. Loading is explicit: callers receive a Config value, nothing
// is cached in package state.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config application configuration.
type Config struct {
	Env   string      `koanf:"env"`
	HTTP  HTTPConfig  `koanf:"http"`
	Store StoreConfig `koanf:"store"`
	Token TokenConfig `koanf:"token"`
	Scope ScopeConfig `koanf:"scope"`
}

// HTTPConfig the listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// StoreConfig selects and parameterizes the token/client backends.
type StoreConfig struct {
	// Kind one of memory, file, postgres, redis
	Kind string `koanf:"kind"`
	// File buntdb path when kind=file
	File string `koanf:"file"`
	// DSN postgres connection string when kind=postgres
	DSN string `koanf:"dsn"`
	// RedisAddr host:port when kind=redis
	RedisAddr string `koanf:"redis_addr"`
	// Prefix redis key namespace
	Prefix string `koanf:"prefix"`
	// Migrate run embedded schema migrations on startup (postgres only)
	Migrate bool `koanf:"migrate"`
}

// TokenConfig token issuance parameters. TTLs are duration strings ("10m").
type TokenConfig struct {
	// Kind one of opaque, jwt
	Kind       string `koanf:"kind"`
	JWTKeyID   string `koanf:"jwt_key_id"`
	JWTMethod  string `koanf:"jwt_method"`
	JWTKeyFile string `koanf:"jwt_key_file"`
	CodeTTL    string `koanf:"code_ttl"`
	AccessTTL  string `koanf:"access_ttl"`
	RefreshTTL string `koanf:"refresh_ttl"`
}

// ScopeConfig scope validation policy.
type ScopeConfig struct {
	// Policy strict (default) or intersect
	Policy string `koanf:"policy"`
}

// Load reads configuration in order: config.yaml, config.<env>.yaml, then
// environment variables with the AUTH_ prefix and __ as the nesting
// separator (AUTH_STORE__DSN -> store.dsn). Missing files are skipped.
func Load(dir string) (*Config, error) {
	k := koanf.New(".")

	envName := os.Getenv("APP_ENV")
	if envName == "" {
		envName = "local"
	}

	if dir != "" {
		for _, name := range []string{"config.yaml", "config." + envName + ".yaml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("AUTH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "AUTH_")), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return nil, err
	}
	if c.Env == "" {
		c.Env = envName
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9096"
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "memory"
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = "oauth2:"
	}
	if c.Token.Kind == "" {
		c.Token.Kind = "opaque"
	}
}

// CodeTTL the configured authorization code lifetime.
func (c *Config) CodeTTL() time.Duration {
	return c.duration(c.Token.CodeTTL, 10*time.Minute)
}

// AccessTTL the configured access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return c.duration(c.Token.AccessTTL, time.Hour)
}

// RefreshTTL the configured refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return c.duration(c.Token.RefreshTTL, 30*24*time.Hour)
}

func (c *Config) duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Package config loads the esi-proxy configuration from an optional TOML file
// and environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Sternrassler/esi-request-cache/pkg/logging"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the esi-proxy configuration.
type Config struct {
	// Upstream is the base URL requests are forwarded to.
	Upstream string `toml:"upstream"`

	// Port the proxy listens on.
	Port string `toml:"port"`

	// User-Agent header (REQUIRED by ESI)
	UserAgent string `toml:"user_agent"`

	Cache   CacheConfig    `toml:"cache"`
	Request RequestConfig  `toml:"request"`
	Log     logging.Config `toml:"log"`
}

// CacheConfig selects and configures the cache store.
type CacheConfig struct {
	Backend     string `toml:"backend"`
	RedisURL    string `toml:"redis_url"`
	DatabaseURL string `toml:"database_url"`
	Table       string `toml:"table"`
}

// RequestConfig holds per-request defaults for proxied calls.
type RequestConfig struct {
	TTL          Duration `toml:"ttl"`
	MaxRetries   int      `toml:"max_retries"`
	Timeout      Duration `toml:"timeout"`
	RetryBackoff Duration `toml:"retry_backoff"`
	MaxBackoff   Duration `toml:"max_backoff"`
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// parseDuration accepts Go durations and bare integers as seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Upstream:  "https://esi.evetech.net",
		Port:      "8080",
		UserAgent: "esi-request-cache/0.1.0",
		Cache: CacheConfig{
			Backend:  BackendMemory,
			RedisURL: "localhost:6379",
		},
		Request: RequestConfig{
			Timeout:    Duration{30 * time.Second},
			MaxBackoff: Duration{30 * time.Second},
		},
		Log: logging.Config{
			Level: logging.LevelInfo,
		},
	}
}

// Load reads the TOML file at path (skipped when empty), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	getEnv := func(key, defaultValue string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return defaultValue
	}

	c.Upstream = getEnv("ESI_UPSTREAM", c.Upstream)
	c.Port = getEnv("PORT", c.Port)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisURL = getEnv("REDIS_URL", c.Cache.RedisURL)
	c.Cache.DatabaseURL = getEnv("DATABASE_URL", c.Cache.DatabaseURL)
	c.Log.Level = logging.LogLevel(getEnv("LOG_LEVEL", string(c.Log.Level)))

	var errs []error
	if v := getEnv("LOG_PRETTY", ""); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOG_PRETTY: %w", err))
		}
		c.Log.Pretty = pretty
	}
	if v := getEnv("CACHE_TTL", ""); v != "" {
		ttl, err := parseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CACHE_TTL: %w", err))
		}
		c.Request.TTL = Duration{ttl}
	}
	if v := getEnv("MAX_RETRIES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_RETRIES: %w", err))
		}
		c.Request.MaxRetries = n
	}
	return errors.Join(errs...)
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Upstream == "" {
		errs = append(errs, errors.New("upstream is required"))
	}
	if c.UserAgent == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, errors.New("cache.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q (want memory, redis or postgres)", c.Cache.Backend))
	}

	if c.Request.TTL.Duration < 0 {
		errs = append(errs, fmt.Errorf("request.ttl must be >= 0 (got %s)", c.Request.TTL))
	}
	if c.Request.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("request.max_retries must be >= 0 (got %d)", c.Request.MaxRetries))
	}
	if c.Request.Timeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("request.timeout must be > 0 (got %s)", c.Request.Timeout))
	}
	if c.Request.RetryBackoff.Duration < 0 {
		errs = append(errs, fmt.Errorf("request.retry_backoff must be >= 0 (got %s)", c.Request.RetryBackoff))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

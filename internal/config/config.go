// Package config loads the cache service configuration from an optional
// YAML file, .env files and environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/12dTa05/CoLy2/pkg/cache"
	"github.com/12dTa05/CoLy2/pkg/logging"
)

// Config is the complete service configuration.
type Config struct {
	Redis struct {
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		DB             int           `yaml:"db"`
		Password       string        `yaml:"password"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		MaxConnections int           `yaml:"max_connections"`
	} `yaml:"redis"`

	Cache struct {
		DefaultTTL         time.Duration `yaml:"default_ttl"`
		FallbackTTL        time.Duration `yaml:"fallback_ttl"`
		FallbackMaxEntries int           `yaml:"fallback_max_entries"`
		SweepInterval      time.Duration `yaml:"sweep_interval"`
		WarmInterval       time.Duration `yaml:"warm_interval"`
	} `yaml:"cache"`

	Tasks struct {
		ErrorBackoff time.Duration `yaml:"error_backoff"`
	} `yaml:"tasks"`

	Database struct {
		URL      string `yaml:"url"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"database"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Default returns the reference configuration.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads path (skipped when empty or missing), then .env files, then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	// .env files never override variables already set in the environment
	_ = godotenv.Load(".env")

	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	redis := cache.DefaultRedisConfig()
	if c.Redis.Host == "" {
		c.Redis.Host = redis.Host
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = redis.Port
	}
	if c.Redis.ConnectTimeout == 0 {
		c.Redis.ConnectTimeout = redis.ConnectTimeout
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = redis.ReadTimeout
	}
	if c.Redis.MaxConnections == 0 {
		c.Redis.MaxConnections = redis.MaxConnections
	}

	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = cache.DefaultTTL
	}
	if c.Cache.FallbackTTL == 0 {
		c.Cache.FallbackTTL = cache.DefaultFallbackTTL
	}
	if c.Cache.FallbackMaxEntries == 0 {
		c.Cache.FallbackMaxEntries = cache.DefaultFallbackMaxEntries
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = time.Hour
	}
	if c.Cache.WarmInterval == 0 {
		c.Cache.WarmInterval = 30 * time.Minute
	}

	if c.Tasks.ErrorBackoff == 0 {
		c.Tasks.ErrorBackoff = 5 * time.Minute
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = string(logging.LevelInfo)
	}
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	str("REDIS_HOST", &c.Redis.Host)
	integer("REDIS_PORT", &c.Redis.Port)
	integer("REDIS_DB", &c.Redis.DB)
	str("REDIS_PASSWORD", &c.Redis.Password)
	duration("REDIS_CONNECT_TIMEOUT", &c.Redis.ConnectTimeout)
	duration("REDIS_READ_TIMEOUT", &c.Redis.ReadTimeout)
	integer("REDIS_MAX_CONNECTIONS", &c.Redis.MaxConnections)

	duration("CACHE_DEFAULT_TTL", &c.Cache.DefaultTTL)
	duration("CACHE_FALLBACK_TTL", &c.Cache.FallbackTTL)
	integer("CACHE_FALLBACK_MAX_ENTRIES", &c.Cache.FallbackMaxEntries)
	duration("CACHE_SWEEP_INTERVAL", &c.Cache.SweepInterval)
	duration("CACHE_WARM_INTERVAL", &c.Cache.WarmInterval)
	duration("TASK_ERROR_BACKOFF", &c.Tasks.ErrorBackoff)

	str("DATABASE_URL", &c.Database.URL)
	str("HTTP_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_PRETTY", &c.Log.Pretty)

	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("5s", "30m") and bare integers as
// seconds.
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate rejects non-positive timeouts, TTLs, intervals and pool sizes.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}

	positive("redis.connect_timeout", c.Redis.ConnectTimeout)
	positive("redis.read_timeout", c.Redis.ReadTimeout)
	positive("cache.default_ttl", c.Cache.DefaultTTL)
	positive("cache.fallback_ttl", c.Cache.FallbackTTL)
	positive("cache.sweep_interval", c.Cache.SweepInterval)
	positive("cache.warm_interval", c.Cache.WarmInterval)
	positive("tasks.error_backoff", c.Tasks.ErrorBackoff)

	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis.port out of range: %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis.db must not be negative, got %d", c.Redis.DB))
	}
	if c.Redis.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("redis.max_connections must be positive, got %d", c.Redis.MaxConnections))
	}
	if c.Cache.FallbackMaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.fallback_max_entries must be positive, got %d", c.Cache.FallbackMaxEntries))
	}

	return errors.Join(errs...)
}

// RedisConfig returns the primary store settings.
func (c *Config) RedisConfig() cache.RedisConfig {
	rc := cache.DefaultRedisConfig()
	rc.Host = c.Redis.Host
	rc.Port = c.Redis.Port
	rc.DB = c.Redis.DB
	rc.Password = c.Redis.Password
	rc.ConnectTimeout = c.Redis.ConnectTimeout
	rc.ReadTimeout = c.Redis.ReadTimeout
	rc.MaxConnections = c.Redis.MaxConnections
	return rc
}

// FallbackConfig returns the in-process store settings.
func (c *Config) FallbackConfig() cache.FallbackConfig {
	return cache.FallbackConfig{
		TTL:        c.Cache.FallbackTTL,
		MaxEntries: c.Cache.FallbackMaxEntries,
	}
}

// LoggingConfig returns the logger settings writing to stderr.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(c.Log.Level)
	lc.Pretty = c.Log.Pretty
	return lc
}

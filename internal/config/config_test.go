package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "localhost", c.Redis.Host)
	assert.Equal(t, 6379, c.Redis.Port)
	assert.Equal(t, 5*time.Second, c.Redis.ConnectTimeout)
	assert.Equal(t, 5*time.Second, c.Redis.ReadTimeout)
	assert.Equal(t, 20, c.Redis.MaxConnections)
	assert.Equal(t, time.Hour, c.Cache.DefaultTTL)
	assert.Equal(t, time.Hour, c.Cache.FallbackTTL)
	assert.Equal(t, 1000, c.Cache.FallbackMaxEntries)
	assert.Equal(t, time.Hour, c.Cache.SweepInterval)
	assert.Equal(t, 30*time.Minute, c.Cache.WarmInterval)
	assert.Equal(t, 5*time.Minute, c.Tasks.ErrorBackoff)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.NoError(t, c.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
redis:
  host: cache.internal
  port: 6380
  read_timeout: 2s
cache:
  default_ttl: 10m
  fallback_max_entries: 50
server:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cache.internal", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, 2*time.Second, c.Redis.ReadTimeout)
	assert.Equal(t, 5*time.Second, c.Redis.ConnectTimeout, "unset fields keep defaults")
	assert.Equal(t, 10*time.Minute, c.Cache.DefaultTTL)
	assert.Equal(t, 50, c.Cache.FallbackMaxEntries)
	assert.Equal(t, ":9090", c.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost", c.Redis.Host)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  host: from-yaml\n"), 0o600))

	t.Setenv("REDIS_HOST", "from-env")
	t.Setenv("REDIS_PORT", "6390")
	t.Setenv("REDIS_CONNECT_TIMEOUT", "3")
	t.Setenv("CACHE_WARM_INTERVAL", "15m")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("DATABASE_URL", "postgres://x@y/z")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.Redis.Host)
	assert.Equal(t, 6390, c.Redis.Port)
	assert.Equal(t, 3*time.Second, c.Redis.ConnectTimeout, "bare integers are seconds")
	assert.Equal(t, 15*time.Minute, c.Cache.WarmInterval)
	assert.True(t, c.Log.Pretty)
	assert.Equal(t, "postgres://x@y/z", c.Database.URL)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("REDIS_PORT", "not-a-number")
	t.Setenv("CACHE_DEFAULT_TTL", "forever")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_PORT")
	assert.Contains(t, err.Error(), "CACHE_DEFAULT_TTL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"negative ttl", func(c *Config) { c.Cache.DefaultTTL = -time.Second }, "cache.default_ttl"},
		{"zero read timeout", func(c *Config) { c.Redis.ReadTimeout = 0 }, "redis.read_timeout"},
		{"bad port", func(c *Config) { c.Redis.Port = 70000 }, "redis.port"},
		{"zero pool", func(c *Config) { c.Redis.MaxConnections = 0 }, "redis.max_connections"},
		{"zero fallback entries", func(c *Config) { c.Cache.FallbackMaxEntries = -1 }, "cache.fallback_max_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConversions(t *testing.T) {
	c := Default()
	c.Redis.Password = "secret"
	c.Log.Level = "debug"

	rc := c.RedisConfig()
	assert.Equal(t, "localhost:6379", rc.Addr())
	assert.Equal(t, "secret", rc.Password)
	assert.Equal(t, uint32(5), rc.BreakerFailures)

	fc := c.FallbackConfig()
	assert.Equal(t, time.Hour, fc.TTL)
	assert.Equal(t, 1000, fc.MaxEntries)

	lc := c.LoggingConfig()
	assert.Equal(t, "debug", string(lc.Level))
}

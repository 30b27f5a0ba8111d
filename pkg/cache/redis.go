package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// RedisConfig holds the primary store connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string

	// ConnectTimeout bounds dialing and the startup ping
	ConnectTimeout time.Duration

	// ReadTimeout bounds every command round trip
	ReadTimeout time.Duration

	// MaxConnections is the connection pool size
	MaxConnections int

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit breaker; while open, calls return immediately as misses
	BreakerFailures uint32

	// BreakerCooldown is how long the breaker stays open before probing
	BreakerCooldown time.Duration
}

// DefaultRedisConfig returns the reference connection settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:            "localhost",
		Port:            6379,
		ConnectTimeout:  5 * time.Second,
		ReadTimeout:     5 * time.Second,
		MaxConnections:  20,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RedisStore is the network-backed primary store. It keeps encoded bytes with
// a server-side TTL and swallows every Redis error after logging it.
type RedisStore struct {
	redis     *redis.Client
	breaker   *gobreaker.CircuitBreaker
	opTimeout time.Duration
	logger    zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
// A failed ping returns an error wrapping ErrStoreUnavailable.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.ConnectTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.ReadTimeout,
		PoolSize:     cfg.MaxConnections,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %v", ErrStoreUnavailable, cfg.Addr(), err)
	}

	logger.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Redis connection established")

	return newRedisStore(client, cfg, logger), nil
}

// NewRedisStoreWithClient wraps an existing client using default timeouts
// and breaker settings.
func NewRedisStoreWithClient(client *redis.Client, logger zerolog.Logger) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return newRedisStore(client, DefaultRedisConfig(), logger)
}

func newRedisStore(client *redis.Client, cfg RedisConfig, logger zerolog.Logger) *RedisStore {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	opTimeout := cfg.ConnectTimeout + cfg.ReadTimeout
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}

	s := &RedisStore{
		redis:     client,
		opTimeout: opTimeout,
		logger:    logger,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			PrimaryBreakerState.Set(float64(to))
			s.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Primary cache circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return s
}

// Name implements Store.
func (s *RedisStore) Name() string {
	return "redis"
}

// GetBytes returns the raw bytes stored under key. Errors are logged and
// reported as absent.
func (s *RedisStore) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.redis.Get(ctx, key).Bytes()
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.fail("get", key, err)
		}
		return nil, false
	}

	data, _ := res.([]byte)
	return data, true
}

// SetBytes stores data under key with the given TTL (SETEX). TTLs below one
// second are raised to one second, the smallest SETEX accepts.
func (s *RedisStore) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) bool {
	if ttl < time.Second {
		ttl = time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.redis.SetEx(ctx, key, data, ttl).Err()
	})
	if err != nil {
		s.fail("set", key, err)
		return false
	}
	return true
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool) {
	data, ok := s.GetBytes(ctx, key)
	if !ok {
		return Entry{}, false
	}
	return EncodedEntry(data), true
}

// Set implements Store. Value-only entries are encoded first.
func (s *RedisStore) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) bool {
	data := entry.Bytes()
	if data == nil {
		encoded, err := NewEntry(entry.value)
		if err != nil {
			s.fail("encode", key, err)
			return false
		}
		data = encoded.Bytes()
	}
	return s.SetBytes(ctx, key, data, ttl)
}

// Delete implements Store (DEL).
func (s *RedisStore) Delete(ctx context.Context, key string) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.redis.Del(ctx, key).Result()
	})
	if err != nil {
		s.fail("delete", key, err)
		return 0
	}

	removed, _ := res.(int64)
	KeysRemoved.WithLabelValues(s.Name()).Add(float64(removed))
	return removed
}

// DeletePattern implements Store. It enumerates matching keys server-side
// with KEYS (glob, '*' wildcard) and removes them in one DEL. The cost is
// proportional to the whole keyspace, not to the number of matches.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) int64 {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	res, err := s.breaker.Execute(func() (interface{}, error) {
		keys, err := s.redis.Keys(ctx, pattern).Result()
		if err != nil || len(keys) == 0 {
			return int64(0), err
		}
		return s.redis.Del(ctx, keys...).Result()
	})
	if err != nil {
		s.fail("delete_pattern", pattern, err)
		return 0
	}

	removed, _ := res.(int64)
	KeysRemoved.WithLabelValues(s.Name()).Add(float64(removed))
	return removed
}

// Ping checks connectivity without going through the breaker.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

func (s *RedisStore) fail(operation, key string, err error) {
	CacheErrors.WithLabelValues(operation, s.Name()).Inc()

	// Rejections while the breaker is open were already reported on the
	// state change.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Debug().Str("operation", operation).Str("key", key).Msg("Primary cache call rejected by breaker")
		return
	}

	s.logger.Warn().
		Err(err).
		Str("operation", operation).
		Str("key", key).
		Msg("Primary cache error")
}

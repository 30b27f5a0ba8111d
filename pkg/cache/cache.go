package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/12dTa05/CoLy2/pkg/codec"
	"github.com/rs/zerolog"
)

// DefaultTTL is applied when Set is called without a positive TTL.
const DefaultTTL = time.Hour

// Config holds facade settings.
type Config struct {
	// DefaultTTL is used when Set receives a non-positive ttl
	DefaultTTL time.Duration
}

// Cache is the facade over the primary and fallback stores. Reads try each
// active tier in order; writes go to every active tier. The fallback store is
// always active; the primary store is active only when it was reachable at
// construction. All failures are logged and absorbed.
type Cache struct {
	tiers      atomic.Pointer[[]Store]
	fallback   *FallbackStore
	defaultTTL time.Duration
	logger     zerolog.Logger
}

// New creates a cache facade. A nil primary starts the cache in degraded
// (fallback-only) mode.
func New(primary Store, fallback *FallbackStore, cfg Config, logger zerolog.Logger) *Cache {
	if fallback == nil {
		panic("fallback store cannot be nil")
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}

	c := &Cache{
		fallback:   fallback,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
	}

	if primary == nil {
		c.degrade(ErrStoreUnavailable)
	} else {
		tiers := []Store{primary, fallback}
		c.tiers.Store(&tiers)
	}

	return c
}

// Open connects to Redis and builds the facade. A failed connection does not
// fail Open: the returned cache runs on the fallback store until restart, and
// the returned *RedisStore is nil.
func Open(ctx context.Context, redisCfg RedisConfig, fallbackCfg FallbackConfig, cfg Config, logger zerolog.Logger) (*Cache, *RedisStore) {
	fallback := NewFallbackStore(fallbackCfg, logger)

	primary, err := NewRedisStore(ctx, redisCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis, using fallback cache")
		return New(nil, fallback, cfg, logger), nil
	}

	return New(primary, fallback, cfg, logger), primary
}

func (c *Cache) degrade(reason error) {
	tiers := []Store{c.fallback}
	c.tiers.Store(&tiers)
	c.logger.Warn().Err(reason).Msg("Cache running in degraded mode (fallback store only)")
}

func (c *Cache) active() []Store {
	return *c.tiers.Load()
}

// Degraded reports whether the primary store is out of rotation.
func (c *Cache) Degraded() bool {
	return len(c.active()) == 1
}

// Mode returns the name of the store serving reads first.
func (c *Cache) Mode() string {
	return c.active()[0].Name()
}

// Get returns the cached value for key. Values served by the primary store
// are decoded into generic JSON values; values served by the fallback store
// are returned as stored.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	var value any
	ok := c.lookup(ctx, key, func(e Entry) error {
		v, err := e.Value()
		value = v
		return err
	})
	return value, ok
}

// GetInto stores the cached value for key in dst, which must be a non-nil
// pointer, and reports whether a value was found.
func (c *Cache) GetInto(ctx context.Context, key string, dst any) bool {
	return c.lookup(ctx, key, func(e Entry) error {
		return e.Into(dst)
	})
}

func (c *Cache) lookup(ctx context.Context, key string, read func(Entry) error) bool {
	for _, store := range c.active() {
		entry, ok := store.Get(ctx, key)
		if !ok {
			continue
		}

		if err := read(entry); err != nil {
			// Corrupted entries degrade to a miss on this tier
			c.codecFailure("decode", store.Name(), key, err)
			continue
		}

		CacheHits.WithLabelValues(store.Name()).Inc()
		c.logger.Debug().Str("key", key).Str("store", store.Name()).Msg("Cache hit")
		return true
	}

	CacheMisses.Inc()
	c.logger.Debug().Str("key", key).Msg("Cache miss")
	return false
}

// Set stores value under key. A non-positive ttl selects the default TTL.
// The fallback store always receives the value; the primary store receives
// it too when active. Set reports false only when the value cannot be
// encoded.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	entry, err := NewEntry(value)
	if err != nil {
		c.codecFailure("encode", "", key, err)
		return false
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	for _, store := range c.active() {
		store.Set(ctx, key, entry, ttl)
	}

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Int("bytes", entry.Size()).Msg("Cache set")
	return true
}

// Delete removes key from every active store and reports whether anything
// was removed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	var removed int64
	for _, store := range c.active() {
		removed += store.Delete(ctx, key)
	}
	return removed > 0
}

// DeletePattern removes matching keys from every active store and returns
// the total number removed. Each store applies its own matching: glob on the
// primary, substring on the fallback. Patterns should be written to behave
// sensibly under both, e.g. "prefix:*".
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int64 {
	var removed int64
	for _, store := range c.active() {
		n := store.DeletePattern(ctx, pattern)
		c.logger.Debug().Str("pattern", pattern).Str("store", store.Name()).Int64("removed", n).Msg("Pattern delete")
		removed += n
	}
	return removed
}

// Sweep evicts expired fallback entries.
func (c *Cache) Sweep() int {
	return c.fallback.Sweep()
}

func (c *Cache) codecFailure(operation, store, key string, err error) {
	CacheErrors.WithLabelValues(operation, store).Inc()

	event := c.logger.Error().Err(err).Str("key", key)
	if store != "" {
		event = event.Str("store", store)
	}

	var encErr *codec.EncodeError
	if errors.As(err, &encErr) {
		event.Msg("Value not cacheable")
		return
	}
	event.Msg("Cached value unreadable, treating as miss")
}

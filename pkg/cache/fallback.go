package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	// DefaultFallbackTTL is the fixed lifetime of every fallback entry,
	// independent of the TTL requested by the caller
	DefaultFallbackTTL = time.Hour

	// DefaultFallbackMaxEntries is the size above which a Set triggers a sweep
	DefaultFallbackMaxEntries = 1000
)

// FallbackConfig holds the in-process store settings.
type FallbackConfig struct {
	// TTL is the lifetime applied to every entry
	TTL time.Duration

	// MaxEntries is the size threshold that triggers an expiry sweep on Set
	MaxEntries int
}

// DefaultFallbackConfig returns the reference fallback settings.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		TTL:        DefaultFallbackTTL,
		MaxEntries: DefaultFallbackMaxEntries,
	}
}

// FallbackStore is the in-process safety net used while the primary store is
// unavailable. It holds live values (never encoded), expires every entry a
// fixed TTL after it was written, and matches delete patterns by substring.
//
// Cleanup is amortized, not LRU: crossing MaxEntries on Set sweeps expired
// entries only, and Sweep may be called periodically. No background
// goroutine is started.
type FallbackStore struct {
	items  *gocache.Cache
	config FallbackConfig
	logger zerolog.Logger
}

// NewFallbackStore creates an empty fallback store.
func NewFallbackStore(cfg FallbackConfig, logger zerolog.Logger) *FallbackStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultFallbackTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultFallbackMaxEntries
	}

	return &FallbackStore{
		// Cleanup interval 0 disables the go-cache janitor goroutine
		items:  gocache.New(cfg.TTL, 0),
		config: cfg,
		logger: logger,
	}
}

// Name implements Store.
func (s *FallbackStore) Name() string {
	return "memory"
}

// Get implements Store. An expired entry is evicted and reported absent.
func (s *FallbackStore) Get(_ context.Context, key string) (Entry, bool) {
	v, ok := s.items.Get(key)
	if !ok {
		// Evict in case the key is present but expired
		s.items.Delete(key)
		return Entry{}, false
	}

	entry, ok := v.(Entry)
	if !ok {
		return Entry{}, false
	}
	return entry, true
}

// Set implements Store. The requested ttl is ignored in favour of the fixed
// fallback TTL.
func (s *FallbackStore) Set(_ context.Context, key string, entry Entry, _ time.Duration) bool {
	s.items.Set(key, entry.withoutBytes(), gocache.DefaultExpiration)

	if s.items.ItemCount() > s.config.MaxEntries {
		removed := s.Sweep()
		s.logger.Debug().
			Int("removed", removed).
			Int("max_entries", s.config.MaxEntries).
			Msg("Fallback cache size threshold crossed, swept expired entries")
	}

	FallbackEntries.Set(float64(s.items.ItemCount()))
	return true
}

// Delete implements Store.
func (s *FallbackStore) Delete(_ context.Context, key string) int64 {
	if _, ok := s.items.Get(key); !ok {
		s.items.Delete(key)
		return 0
	}

	s.items.Delete(key)
	FallbackEntries.Set(float64(s.items.ItemCount()))
	KeysRemoved.WithLabelValues(s.Name()).Inc()
	return 1
}

// DeletePattern implements Store. Every '*' is stripped from pattern and the
// remainder is matched by substring containment, which is looser than the
// primary store's glob matching: "video_details:abc*" also removes
// "x:video_details:abc".
func (s *FallbackStore) DeletePattern(_ context.Context, pattern string) int64 {
	needle := strings.ReplaceAll(pattern, "*", "")

	var removed int64
	for key := range s.items.Items() {
		if strings.Contains(key, needle) {
			s.items.Delete(key)
			removed++
		}
	}

	if removed > 0 {
		FallbackEntries.Set(float64(s.items.ItemCount()))
		KeysRemoved.WithLabelValues(s.Name()).Add(float64(removed))
	}
	return removed
}

// Sweep removes every entry older than the fallback TTL and returns how many
// entries were removed.
func (s *FallbackStore) Sweep() int {
	before := s.items.ItemCount()
	s.items.DeleteExpired()
	after := s.items.ItemCount()

	FallbackEntries.Set(float64(after))

	if removed := before - after; removed > 0 {
		return removed
	}
	return 0
}

// Len returns the number of held entries, including expired ones not yet swept.
func (s *FallbackStore) Len() int {
	return s.items.ItemCount()
}

// TTL returns the fixed entry lifetime.
func (s *FallbackStore) TTL() time.Duration {
	return s.config.TTL
}

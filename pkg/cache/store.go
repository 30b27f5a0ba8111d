package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable indicates the primary store could not be reached
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Store is one tier of the cache. Implementations absorb their own failures:
// a store error surfaces as a miss, a false Set, or a zero removal count.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: network-backed stores bound every call by their configured timeouts.
type Store interface {
	// Name labels the store in logs and metrics.
	Name() string

	// Get returns the entry stored under key, if present and not expired.
	Get(ctx context.Context, key string) (Entry, bool)

	// Set stores entry under key. Stores may apply their own expiry policy
	// instead of ttl.
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) bool

	// Delete removes key and reports how many entries were removed.
	Delete(ctx context.Context, key string) int64

	// DeletePattern removes every key matching pattern using the store's own
	// matching semantics and reports how many entries were removed.
	DeletePattern(ctx context.Context, pattern string) int64
}

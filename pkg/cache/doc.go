// Package cache provides the two-tier cache used by the CoLy backend.
//
// The primary tier is Redis (RedisStore): values are stored encoded
// (JSON + gzip, see package codec) with a server-side TTL. The fallback tier
// is an in-process store (FallbackStore) holding live values with a fixed
// one hour lifetime. The Cache facade writes to both tiers and reads from the
// primary first.
//
// Failure handling:
//
// - If Redis cannot be reached at construction, the facade runs on the
// fallback tier alone until restart
// - Runtime Redis errors are logged and absorbed; reads become misses and
// writes are skipped
// - A circuit breaker short-circuits Redis calls after repeated failures
// - Values that cannot be encoded are never cached
//
// # Basic Usage
//
//	c, primary := cache.Open(ctx, cache.DefaultRedisConfig(),
//		cache.DefaultFallbackConfig(), cache.Config{}, logger)
//	if primary != nil {
//		defer primary.Close()
//	}
//
//	key := cache.Build("video_details", videoID)
//	c.Set(ctx, key, details, 30*time.Minute)
//
//	var got VideoDetails
//	if c.GetInto(ctx, key, &got) {
//		// cache hit
//	}
//
// # Keys
//
// Keys are built as "namespace:arg1:arg2[:name=value...]" with named
// arguments sorted by name. Keys longer than MaxKeyLength collapse to
// "namespace:<md5 hex>".
//
// # Pattern Deletes
//
// Redis matches patterns as globs. The fallback store strips '*' and matches
// by substring, so "video_details:abc*" also removes keys that merely contain
// "video_details:abc". Callers should write patterns as "prefix:*" forms.
//
// # Metrics
//
// Exposed Prometheus metrics:
//
//	coly_cache_hits_total{store}
//	coly_cache_misses_total
//	coly_cache_errors_total{operation,store}
//	coly_cache_keys_removed_total{store}
//	coly_fallback_entries
//	coly_cache_primary_breaker_state
package cache

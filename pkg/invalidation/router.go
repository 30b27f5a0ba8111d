// Package invalidation maps data mutations to the cache key patterns that
// must be purged.
//
// Purges are best-effort: they run synchronously after the write that caused
// them, failures are logged and never retried, and a stale entry left behind
// expires through its TTL.
package invalidation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Invalidations tracks purge events by mutation type
var Invalidations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coly_cache_invalidations_total",
		Help: "Total number of cache invalidation events",
	},
	[]string{"event"}, // "video", "user", "playlist"
)

// Purger removes cached keys. Implemented by *cache.Cache.
type Purger interface {
	Delete(ctx context.Context, key string) bool
	DeletePattern(ctx context.Context, pattern string) int64
}

// Router issues purges for mutation events.
type Router struct {
	purger Purger
	logger zerolog.Logger
}

// NewRouter creates a router purging through p.
func NewRouter(p Purger, logger zerolog.Logger) *Router {
	if p == nil {
		panic("purger cannot be nil")
	}
	return &Router{purger: p, logger: logger}
}

// VideoPatterns returns the patterns purged when a video changes. Any cached
// listing might include the video, so listings and searches are purged whole.
func VideoPatterns(videoID string) []string {
	return []string{
		"video_details:" + videoID + "*",
		"public_videos:*",
		"search_results:*",
	}
}

// UserPatterns returns the patterns purged when a user changes. The second
// pattern matches any key containing "user:<id>".
func UserPatterns(userID string) []string {
	return []string{
		"user_profile:" + userID + "*",
		"*user:" + userID + "*",
	}
}

// PlaylistKey returns the key deleted when a playlist changes.
func PlaylistKey(playlistID string) string {
	return "playlist:" + playlistID
}

// OnVideoChanged purges everything that may hold the video and returns the
// number of keys removed.
func (r *Router) OnVideoChanged(ctx context.Context, videoID string) int64 {
	return r.purge(ctx, "video", videoID, VideoPatterns(videoID))
}

// OnUserChanged purges everything that may hold the user and returns the
// number of keys removed.
func (r *Router) OnUserChanged(ctx context.Context, userID string) int64 {
	return r.purge(ctx, "user", userID, UserPatterns(userID))
}

// OnPlaylistChanged deletes the cached playlist.
func (r *Router) OnPlaylistChanged(ctx context.Context, playlistID string) int64 {
	Invalidations.WithLabelValues("playlist").Inc()

	var removed int64
	if r.purger.Delete(ctx, PlaylistKey(playlistID)) {
		removed = 1
	}

	r.logger.Info().
		Str("event", "playlist").
		Str("id", playlistID).
		Int64("removed", removed).
		Msg("Cache invalidated")
	return removed
}

func (r *Router) purge(ctx context.Context, event, id string, patterns []string) int64 {
	Invalidations.WithLabelValues(event).Inc()
	start := time.Now()

	var removed int64
	for _, pattern := range patterns {
		removed += r.purger.DeletePattern(ctx, pattern)
	}

	r.logger.Info().
		Str("event", event).
		Str("id", id).
		Strs("patterns", patterns).
		Int64("removed", removed).
		Dur("duration", time.Since(start)).
		Msg("Cache invalidated")
	return removed
}

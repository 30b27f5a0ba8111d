package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/12dTa05/CoLy2/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	deleted  []string
	patterns []string
}

func (p *recordingPurger) Delete(_ context.Context, key string) bool {
	p.deleted = append(p.deleted, key)
	return true
}

func (p *recordingPurger) DeletePattern(_ context.Context, pattern string) int64 {
	p.patterns = append(p.patterns, pattern)
	return 1
}

func TestRouter_OnVideoChanged_Patterns(t *testing.T) {
	p := &recordingPurger{}
	r := NewRouter(p, zerolog.Nop())

	removed := r.OnVideoChanged(context.Background(), "abc")

	assert.Equal(t, []string{"video_details:abc*", "public_videos:*", "search_results:*"}, p.patterns)
	assert.Equal(t, int64(3), removed)
}

func TestRouter_OnUserChanged_Patterns(t *testing.T) {
	p := &recordingPurger{}
	r := NewRouter(p, zerolog.Nop())

	r.OnUserChanged(context.Background(), "u1")

	assert.Equal(t, []string{"user_profile:u1*", "*user:u1*"}, p.patterns)
}

func TestRouter_OnPlaylistChanged(t *testing.T) {
	p := &recordingPurger{}
	r := NewRouter(p, zerolog.Nop())

	assert.Equal(t, int64(1), r.OnPlaylistChanged(context.Background(), "pl1"))
	assert.Equal(t, []string{"playlist:pl1"}, p.deleted)
	assert.Empty(t, p.patterns)
}

func newFallbackCache(t *testing.T) *cache.Cache {
	t.Helper()
	fallback := cache.NewFallbackStore(cache.DefaultFallbackConfig(), zerolog.Nop())
	return cache.New(nil, fallback, cache.Config{}, zerolog.Nop())
}

func TestRouter_VideoFanOut(t *testing.T) {
	c := newFallbackCache(t)
	ctx := context.Background()

	for _, key := range []string{
		"video_details:abc:full",
		"public_videos:page1",
		"search_results:golang:page=1",
		"video_details:other",
		"trending:all:20",
	} {
		require.True(t, c.Set(ctx, key, key, time.Minute))
	}

	NewRouter(c, zerolog.Nop()).OnVideoChanged(ctx, "abc")

	for _, key := range []string{"video_details:abc:full", "public_videos:page1", "search_results:golang:page=1"} {
		_, ok := c.Get(ctx, key)
		assert.False(t, ok, "%s should be purged", key)
	}
	for _, key := range []string{"video_details:other", "trending:all:20"} {
		_, ok := c.Get(ctx, key)
		assert.True(t, ok, "%s should survive", key)
	}
}

func TestRouter_UserFanOut(t *testing.T) {
	c := newFallbackCache(t)
	ctx := context.Background()

	for _, key := range []string{"user_profile:u1", "analytics:user:u1:30", "user_profile:u2"} {
		c.Set(ctx, key, key, time.Minute)
	}

	NewRouter(c, zerolog.Nop()).OnUserChanged(ctx, "u1")

	_, ok := c.Get(ctx, "user_profile:u1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "analytics:user:u1:30")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "user_profile:u2")
	assert.True(t, ok)
}

func TestNewRouter_Panic(t *testing.T) {
	assert.Panics(t, func() { NewRouter(nil, zerolog.Nop()) })
}

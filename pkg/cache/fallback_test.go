package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFallback(t *testing.T, ttl time.Duration, maxEntries int) *FallbackStore {
	t.Helper()
	return NewFallbackStore(FallbackConfig{TTL: ttl, MaxEntries: maxEntries}, zerolog.Nop())
}

func TestFallbackStore_SetGet(t *testing.T) {
	s := newTestFallback(t, time.Minute, 10)
	ctx := context.Background()

	value := map[string]any{"title": "a"}
	require.True(t, s.Set(ctx, "video_details:1", ValueEntry(value), time.Minute))

	entry, ok := s.Get(ctx, "video_details:1")
	require.True(t, ok)
	assert.Nil(t, entry.Bytes(), "fallback holds live values only")

	got, err := entry.Value()
	require.NoError(t, err)
	assert.Equal(t, value, got)

	_, ok = s.Get(ctx, "video_details:2")
	assert.False(t, ok)
}

func TestFallbackStore_DropsEncodedBytes(t *testing.T) {
	s := newTestFallback(t, time.Minute, 10)
	ctx := context.Background()

	entry, err := NewEntry([]any{"x"})
	require.NoError(t, err)
	require.NotNil(t, entry.Bytes())

	s.Set(ctx, "k", entry, time.Minute)

	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Nil(t, got.Bytes())
}

func TestFallbackStore_IgnoresRequestedTTL(t *testing.T) {
	s := newTestFallback(t, time.Hour, 10)
	ctx := context.Background()

	s.Set(ctx, "k", ValueEntry(1), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := s.Get(ctx, "k")
	assert.True(t, ok, "entry should outlive the requested TTL")
}

func TestFallbackStore_Expiry(t *testing.T) {
	s := newTestFallback(t, 20*time.Millisecond, 10)
	ctx := context.Background()

	s.Set(ctx, "k", ValueEntry(1), time.Hour)
	time.Sleep(40 * time.Millisecond)

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok, "entry should expire after the fallback TTL")
	assert.Equal(t, 0, s.Len(), "expired entry should be evicted on read")
}

func TestFallbackStore_Delete(t *testing.T) {
	s := newTestFallback(t, time.Minute, 10)
	ctx := context.Background()

	s.Set(ctx, "k", ValueEntry(1), 0)

	assert.Equal(t, int64(1), s.Delete(ctx, "k"))
	assert.Equal(t, int64(0), s.Delete(ctx, "k"))

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestFallbackStore_DeletePattern(t *testing.T) {
	s := newTestFallback(t, time.Minute, 100)
	ctx := context.Background()

	for _, key := range []string{
		"video_details:abc",
		"video_details:abc:extra",
		"x:video_details:abc",
		"video_details:xyz",
		"public_videos:page:1:limit:24",
	} {
		s.Set(ctx, key, ValueEntry(key), 0)
	}

	// Substring semantics: the third key matches too
	removed := s.DeletePattern(ctx, "video_details:abc*")
	assert.Equal(t, int64(3), removed)

	_, ok := s.Get(ctx, "video_details:xyz")
	assert.True(t, ok)
	_, ok = s.Get(ctx, "x:video_details:abc")
	assert.False(t, ok)

	assert.Equal(t, int64(1), s.DeletePattern(ctx, "public_videos:*"))
	assert.Equal(t, int64(0), s.DeletePattern(ctx, "search_results:*"))
}

func TestFallbackStore_Sweep(t *testing.T) {
	s := newTestFallback(t, 20*time.Millisecond, 100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Set(ctx, fmt.Sprintf("k%d", i), ValueEntry(i), 0)
	}
	assert.Equal(t, 0, s.Sweep(), "nothing expired yet")

	time.Sleep(40 * time.Millisecond)
	s.Set(ctx, "fresh", ValueEntry(true), 0)

	assert.Equal(t, 5, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestFallbackStore_ThresholdTriggersSweep(t *testing.T) {
	s := newTestFallback(t, 20*time.Millisecond, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Set(ctx, fmt.Sprintf("old%d", i), ValueEntry(i), 0)
	}
	time.Sleep(40 * time.Millisecond)

	// Crossing the threshold sweeps the expired entries
	s.Set(ctx, "a", ValueEntry(1), 0)
	assert.Equal(t, 1, s.Len())
}

func TestFallbackStore_ThresholdKeepsLiveEntries(t *testing.T) {
	s := newTestFallback(t, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Set(ctx, fmt.Sprintf("k%d", i), ValueEntry(i), 0)
	}

	// Sweeping is expiry-only, not LRU
	assert.Equal(t, 5, s.Len())
}

func TestFallbackStore_Concurrent(t *testing.T) {
	s := newTestFallback(t, time.Minute, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("w%d:%d", w, i)
				s.Set(ctx, key, ValueEntry(i), 0)
				s.Get(ctx, key)
				if i%10 == 0 {
					s.DeletePattern(ctx, fmt.Sprintf("w%d:*", w))
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestNewFallbackStore_Defaults(t *testing.T) {
	s := NewFallbackStore(FallbackConfig{}, zerolog.Nop())
	assert.Equal(t, DefaultFallbackTTL, s.TTL())
	assert.Equal(t, "memory", s.Name())
}

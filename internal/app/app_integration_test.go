//go:build integration

package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/12dTa05/CoLy2/internal/config"
	"github.com/12dTa05/CoLy2/internal/testutil"
	"github.com/12dTa05/CoLy2/pkg/catalog"
	"github.com/12dTa05/CoLy2/pkg/catalog/postgres"
)

// setupStack starts Redis and Postgres, applies the schema and returns an
// App connected to both plus a seeding handle on the database.
func setupStack(t *testing.T) (*App, *postgres.Source) {
	t.Helper()

	ctx := context.Background()
	redis := testutil.StartRedis(t)
	dsn := testutil.StartPostgres(t)

	seed, err := postgres.New(ctx, postgres.Config{DSN: dsn}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(seed.Close)
	require.NoError(t, seed.Migrate(ctx))

	cfg := config.Default()
	cfg.Redis.Host = redis.Host
	cfg.Redis.Port = redis.Port
	cfg.Database.URL = dsn

	a, err := New(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return a, seed
}

func TestStack_ReadThroughAndInvalidate(t *testing.T) {
	a, seed := setupStack(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.Equal(t, "primary", a.Ready(ctx))

	require.NoError(t, seed.PutUser(ctx, "u1", catalog.Document{"username": "alice"}))
	require.NoError(t, seed.PutVideo(ctx, "v1", catalog.Document{
		"title":       "first cut",
		"userId":      "u1",
		"visibility":  "public",
		"status":      "ready",
		"stats":       map[string]any{"views": 3},
		"publishedAt": now.Format(time.RFC3339),
		"createdAt":   now.Format(time.RFC3339),
	}))

	details, err := a.Catalog.VideoDetails(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "first cut", details.Video["title"])

	// Change the row behind the cache's back: the cached copy still wins
	require.NoError(t, seed.PutVideo(ctx, "v1", catalog.Document{
		"title": "renamed", "userId": "u1", "visibility": "public", "status": "ready",
	}))
	details, err = a.Catalog.VideoDetails(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "first cut", details.Video["title"])

	// Going through the write path purges it
	modified, err := a.Catalog.UpdateVideo(ctx, "v1", catalog.Document{"title": "final"})
	require.NoError(t, err)
	require.True(t, modified)

	details, err = a.Catalog.VideoDetails(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "final", details.Video["title"])

	stats := a.Monitor.GetStats()
	assert.Equal(t, int64(3), stats.Metrics["video_details"].TotalCalls)
	assert.Equal(t, int64(1), stats.Metrics["video_details"].CacheHits)
}

func TestStack_Warm(t *testing.T) {
	a, seed := setupStack(t)
	ctx := context.Background()

	require.NoError(t, seed.PutVideo(ctx, "v1", catalog.Document{
		"title": "hot", "visibility": "public", "status": "ready",
		"stats": map[string]any{"views": 1000},
	}))

	require.NoError(t, a.Warm(ctx))

	for _, key := range []string{
		"public_videos:page:1:limit:24",
		catalog.SearchKey(catalog.SearchQuery{SortBy: catalog.SortViews, Page: 1, Limit: 20}),
	} {
		_, ok := a.Cache.Get(ctx, key)
		assert.True(t, ok, "expected %s to be warm", key)
	}
}

//go:build integration

package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/12dTa05/CoLy2/internal/app"
	"github.com/12dTa05/CoLy2/internal/config"
	"github.com/12dTa05/CoLy2/internal/testutil"
)

func TestReadyEndpoint_Primary(t *testing.T) {
	redis := testutil.StartRedis(t)

	cfg := config.Default()
	cfg.Redis.Host = redis.Host
	cfg.Redis.Port = redis.Port

	a := app.NewWithSource(context.Background(), cfg, nil, zerolog.Nop())
	defer a.Close()

	status, body := get(t, newRouter(a, zerolog.Nop()), "/ready")
	if status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if body != "primary" {
		t.Errorf("Expected body 'primary', got %q", body)
	}
}

func TestPurgeAgainstRedis(t *testing.T) {
	redis := testutil.StartRedis(t)

	cfg := config.Default()
	cfg.Redis.Host = redis.Host
	cfg.Redis.Port = redis.Port

	a := app.NewWithSource(context.Background(), cfg, nil, zerolog.Nop())
	defer a.Close()

	ctx := context.Background()
	a.Cache.Set(ctx, "video_details:42", map[string]any{"title": "x"}, 0)
	a.Cache.Set(ctx, "public_videos:page:1:limit:24", []any{}, 0)
	a.Cache.Set(ctx, "video_details:7", map[string]any{"title": "y"}, 0)

	// Two tiers hold each purged key
	if removed := a.Router.OnVideoChanged(ctx, "42"); removed != 4 {
		t.Errorf("Expected 4 removals across tiers, got %d", removed)
	}
	if _, ok := a.Cache.Get(ctx, "video_details:7"); !ok {
		t.Error("Unrelated video should stay cached")
	}
}

package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/12dTa05/CoLy2/pkg/catalog"
)

var _ catalog.Source = (*FakeSource)(nil)

func TestFakeSource_CountsCalls(t *testing.T) {
	f := NewFakeSource()
	f.AddVideo("v1", PublicVideo("intro", "music"))

	ctx := context.Background()
	_, err := f.VideoDetails(ctx, "v1")
	require.NoError(t, err)
	_, err = f.VideoDetails(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.Equal(t, 2, f.Calls("VideoDetails"))
	assert.Zero(t, f.Calls("Search"))
}

func TestFakeSource_Err(t *testing.T) {
	f := NewFakeSource()
	f.Err = errors.New("down")

	_, err := f.PublicVideos(context.Background(), 1, 10)
	assert.EqualError(t, err, "down")
}

func TestFakeSource_UpdateReportsModification(t *testing.T) {
	f := NewFakeSource()
	f.AddVideo("v1", PublicVideo("intro", "music"))

	ctx := context.Background()
	modified, err := f.UpdateVideo(ctx, "v1", catalog.Document{"title": "intro"})
	require.NoError(t, err)
	assert.False(t, modified, "same value is not a modification")

	modified, err = f.UpdateVideo(ctx, "v1", catalog.Document{"title": "outro"})
	require.NoError(t, err)
	assert.True(t, modified)
}

package catalog

import "context"

// Source is the document database behind the cache. Lookups return
// ErrNotFound when the requested document does not exist.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Updates report whether a document was actually modified; an update that
// changes nothing reports false and triggers no invalidation.
type Source interface {
	VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error)
	PublicVideos(ctx context.Context, page, limit int) (*Page, error)
	Search(ctx context.Context, q SearchQuery) (*Page, error)
	UserProfile(ctx context.Context, userID string) (Document, error)
	Trending(ctx context.Context, category string, limit int) ([]Document, error)
	Recommendations(ctx context.Context, videoID string, limit int) ([]Document, error)
	Analytics(ctx context.Context, userID string, days int) (*Analytics, error)
	Playlist(ctx context.Context, playlistID string) (Document, error)

	UpdateVideo(ctx context.Context, videoID string, fields Document) (bool, error)
	UpdateUser(ctx context.Context, userID string, fields Document) (bool, error)
	UpdatePlaylist(ctx context.Context, playlistID string, fields Document) (bool, error)
}

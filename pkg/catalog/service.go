// Package catalog serves the expensive read queries of the video platform
// through the cache, and invalidates cached results when documents change.
//
// Cached namespaces and lifetimes:
//
//	video_details     30m  video_details:<id>
//	public_videos     10m  public_videos:page:<page>:limit:<limit>
//	search_results    10m  search_results:<query>:<filters...>
//	user_profile      30m  user_profile:<id>
//	trending          30m  trending:<category>:<limit>
//	recommendations   10m  recommendations:<id>:<limit>
//	analytics          1h  analytics:<user id>:<days>
//	playlist           5m  playlist:<id>
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/12dTa05/CoLy2/pkg/cache"
	"github.com/12dTa05/CoLy2/pkg/invalidation"
	"github.com/12dTa05/CoLy2/pkg/memo"
	"github.com/12dTa05/CoLy2/pkg/monitor"
	"github.com/12dTa05/CoLy2/pkg/warm"
	"github.com/rs/zerolog"
)

// Cache lifetimes per namespace.
const (
	VideoDetailsTTL    = 30 * time.Minute
	PublicVideosTTL    = 10 * time.Minute
	SearchTTL          = 10 * time.Minute
	UserProfileTTL     = 30 * time.Minute
	TrendingTTL        = 30 * time.Minute
	RecommendationsTTL = 10 * time.Minute
	AnalyticsTTL       = time.Hour
	PlaylistTTL        = 5 * time.Minute
)

// Listing limits.
const (
	DefaultPublicLimit          = 24
	MaxPublicLimit              = 50
	DefaultTrendingLimit        = 50
	DefaultRecommendationsLimit = 20
	DefaultAnalyticsDays        = 30
)

// sensitiveUserFields are removed from profiles before caching
var sensitiveUserFields = []string{"password", "sessionToken"}

// Service answers catalog queries cache-aside. Results served from the
// in-process fallback tier are shared with other callers and must not be
// mutated.
type Service struct {
	source  Source
	router  *invalidation.Router
	monitor *monitor.Monitor
	logger  zerolog.Logger

	videoDetails    memo.Func[*VideoDetails]
	publicVideos    memo.Func[*Page]
	search          memo.Func[*Page]
	userProfile     memo.Func[Document]
	trending        memo.Func[[]Document]
	recommendations memo.Func[[]Document]
	analytics       memo.Func[*Analytics]
	playlist        memo.Func[Document]
}

// NewService wires source behind the memoizer. mon may be nil.
func NewService(source Source, m *memo.Memoizer, router *invalidation.Router, mon *monitor.Monitor, logger zerolog.Logger) *Service {
	if source == nil {
		panic("catalog source cannot be nil")
	}
	if router == nil {
		panic("invalidation router cannot be nil")
	}

	s := &Service{
		source:  source,
		router:  router,
		monitor: mon,
		logger:  logger,
	}

	s.videoDetails = memo.Wrap(m, "video_details", VideoDetailsTTL,
		func(ctx context.Context, args ...any) (*VideoDetails, error) {
			return source.VideoDetails(ctx, args[0].(string))
		})

	s.publicVideos = memo.Wrap(m, "public_videos", PublicVideosTTL,
		func(ctx context.Context, args ...any) (*Page, error) {
			return source.PublicVideos(ctx, args[0].(int), args[1].(int))
		},
		memo.WithKeyFunc(func(args ...any) string {
			return fmt.Sprintf("public_videos:page:%d:limit:%d", args[0], args[1])
		}))

	s.search = memo.Wrap(m, "search_results", SearchTTL,
		func(ctx context.Context, args ...any) (*Page, error) {
			return source.Search(ctx, args[1].(SearchQuery))
		},
		memo.WithKeyFunc(func(args ...any) string {
			return args[0].(string)
		}))

	s.userProfile = memo.Wrap(m, "user_profile", UserProfileTTL,
		func(ctx context.Context, args ...any) (Document, error) {
			profile, err := source.UserProfile(ctx, args[0].(string))
			if err != nil {
				return nil, err
			}
			return publicProfile(profile), nil
		})

	s.trending = memo.Wrap(m, "trending", TrendingTTL,
		func(ctx context.Context, args ...any) ([]Document, error) {
			return source.Trending(ctx, args[0].(string), args[1].(int))
		},
		memo.WithKeyFunc(func(args ...any) string {
			return TrendingKey(args[0].(string), args[1].(int))
		}))

	s.recommendations = memo.Wrap(m, "recommendations", RecommendationsTTL,
		func(ctx context.Context, args ...any) ([]Document, error) {
			return source.Recommendations(ctx, args[0].(string), args[1].(int))
		})

	s.analytics = memo.Wrap(m, "analytics", AnalyticsTTL,
		func(ctx context.Context, args ...any) (*Analytics, error) {
			return source.Analytics(ctx, args[0].(string), args[1].(int))
		})

	s.playlist = memo.Wrap(m, "playlist", PlaylistTTL,
		func(ctx context.Context, args ...any) (Document, error) {
			return source.Playlist(ctx, args[0].(string))
		})

	return s
}

// SearchKey returns the cache key of a normalized search query.
func SearchKey(q SearchQuery) string {
	named := cache.Named{
		"sort_by": q.SortBy,
		"page":    q.Page,
		"limit":   q.Limit,
	}
	if q.Category != "" {
		named["category"] = q.Category
	}
	if q.Duration != "" {
		named["duration"] = q.Duration
	}
	if q.Date != "" {
		named["date"] = q.Date
	}
	return cache.Build("search_results", q.Query, named)
}

// TrendingKey returns the cache key of a trending listing. An empty category
// is keyed as "all".
func TrendingKey(category string, limit int) string {
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("trending:%s:%d", category, limit)
}

// VideoDetails returns a video with its uploader and recent comments.
func (s *Service) VideoDetails(ctx context.Context, videoID string) (*VideoDetails, error) {
	return s.videoDetails(ctx, videoID)
}

// PublicVideos returns one page of public, ready videos, newest first.
func (s *Service) PublicVideos(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPublicLimit
	}
	if limit > MaxPublicLimit {
		limit = MaxPublicLimit
	}
	return s.publicVideos(ctx, page, limit)
}

// Search runs a full-text search.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*Page, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}
	return s.search(ctx, SearchKey(q), q)
}

// UserProfile returns a user's profile without credentials.
func (s *Service) UserProfile(ctx context.Context, userID string) (Document, error) {
	return s.userProfile(ctx, userID)
}

// Trending returns the highest scoring recent videos, optionally within a
// category.
func (s *Service) Trending(ctx context.Context, category string, limit int) ([]Document, error) {
	if limit < 1 {
		limit = DefaultTrendingLimit
	}
	return s.trending(ctx, category, limit)
}

// Recommendations returns videos related to videoID.
func (s *Service) Recommendations(ctx context.Context, videoID string, limit int) ([]Document, error) {
	if limit < 1 {
		limit = DefaultRecommendationsLimit
	}
	return s.recommendations(ctx, videoID, limit)
}

// Analytics returns a user's dashboard over the last days.
func (s *Service) Analytics(ctx context.Context, userID string, days int) (*Analytics, error) {
	if days < 1 {
		days = DefaultAnalyticsDays
	}
	return s.analytics(ctx, userID, days)
}

// Playlist returns a playlist document.
func (s *Service) Playlist(ctx context.Context, playlistID string) (Document, error) {
	return s.playlist(ctx, playlistID)
}

// UpdateVideo applies fields to a video and, when it changed, purges every
// cached result that may include it.
func (s *Service) UpdateVideo(ctx context.Context, videoID string, fields Document) (bool, error) {
	return s.update(ctx, "update_video", videoID, fields, s.source.UpdateVideo, s.router.OnVideoChanged)
}

// UpdateUser applies fields to a user and, when it changed, purges the
// cached profile and user-scoped results.
func (s *Service) UpdateUser(ctx context.Context, userID string, fields Document) (bool, error) {
	return s.update(ctx, "update_user", userID, fields, s.source.UpdateUser, s.router.OnUserChanged)
}

// UpdatePlaylist applies fields to a playlist and, when it changed, deletes
// the cached playlist.
func (s *Service) UpdatePlaylist(ctx context.Context, playlistID string, fields Document) (bool, error) {
	return s.update(ctx, "update_playlist", playlistID, fields, s.source.UpdatePlaylist, s.router.OnPlaylistChanged)
}

type updateFunc func(ctx context.Context, id string, fields Document) (bool, error)

type purgeFunc func(ctx context.Context, id string) int64

func (s *Service) update(ctx context.Context, operation, id string, fields Document, apply updateFunc, purge purgeFunc) (bool, error) {
	var modified bool
	run := func() error {
		var err error
		modified, err = apply(ctx, id, fields)
		return err
	}

	var err error
	if s.monitor != nil {
		err = s.monitor.Track(operation, false, run)
	} else {
		err = run()
	}
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", operation, id, err)
	}

	if !modified {
		s.logger.Debug().Str("operation", operation).Str("id", id).Msg("Update changed nothing, cache kept")
		return false, nil
	}

	purge(ctx, id)
	return true, nil
}

// WarmJobs returns the known-hot queries: the first public listing page and
// the most viewed search page.
func (s *Service) WarmJobs() []warm.Job {
	return []warm.Job{
		{
			Name: "public_videos",
			Run: func(ctx context.Context) error {
				_, err := s.PublicVideos(ctx, 1, DefaultPublicLimit)
				return err
			},
		},
		{
			Name: "trending_search",
			Run: func(ctx context.Context) error {
				_, err := s.Search(ctx, SearchQuery{SortBy: SortViews, Page: 1, Limit: 20})
				return err
			},
		},
	}
}

func publicProfile(profile Document) Document {
	if profile == nil {
		return nil
	}
	out := make(Document, len(profile))
	for k, v := range profile {
		out[k] = v
	}
	for _, field := range sensitiveUserFields {
		delete(out, field)
	}
	return out
}

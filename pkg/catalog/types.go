package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested document does not exist
	ErrNotFound = errors.New("document not found")

	// ErrInvalidQuery indicates a query parameter outside its allowed values
	ErrInvalidQuery = errors.New("invalid query")
)

// Document is a schemaless database document. Reference fields may hold
// codec.DocumentID values; they are stored as strings once cached.
type Document map[string]any

// Uploader is the public profile summary shown next to a video.
type Uploader struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	Avatar          string `json:"avatar"`
	SubscriberCount int64  `json:"subscriberCount"`
}

// VideoDetails is a video with its uploader and most recent top-level
// comments.
type VideoDetails struct {
	Video    Document   `json:"video"`
	Uploader *Uploader  `json:"uploader"`
	Comments []Document `json:"comments"`
}

// Page is one page of a video listing.
type Page struct {
	Videos []Document `json:"videos"`
	Total  int64      `json:"total"`
	Page   int        `json:"page"`
	Pages  int        `json:"pages"`
}

// NewPage builds a page, deriving the page count from total and limit.
func NewPage(videos []Document, total int64, page, limit int) *Page {
	if videos == nil {
		videos = []Document{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Page{Videos: videos, Total: total, Page: page, Pages: pages}
}

// Search sort orders.
const (
	SortRelevance = "relevance"
	SortDate      = "date"
	SortViews     = "views"
)

// Search duration filters.
const (
	DurationShort  = "short"  // under 4 minutes
	DurationMedium = "medium" // 4 to 20 minutes
	DurationLong   = "long"   // 20 minutes or more
)

// Search date filters.
const (
	DateToday = "today"
	DateWeek  = "week"
	DateMonth = "month"
	DateYear  = "year"
)

// SearchQuery holds full-text search parameters. Empty fields mean no filter.
type SearchQuery struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	SortBy   string `json:"sort_by"`
	Duration string `json:"duration,omitempty"`
	Date     string `json:"date,omitempty"`
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
}

// Normalize applies defaults and validates the enumerated fields.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	if q.SortBy == "" {
		q.SortBy = SortRelevance
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	switch q.SortBy {
	case SortRelevance, SortDate, SortViews:
	default:
		return q, fmt.Errorf("%w: sort_by %q", ErrInvalidQuery, q.SortBy)
	}

	switch q.Duration {
	case "", DurationShort, DurationMedium, DurationLong:
	default:
		return q, fmt.Errorf("%w: duration %q", ErrInvalidQuery, q.Duration)
	}

	switch q.Date {
	case "", DateToday, DateWeek, DateMonth, DateYear:
	default:
		return q, fmt.Errorf("%w: date %q", ErrInvalidQuery, q.Date)
	}

	return q, nil
}

// AnalyticsSummary aggregates a user's channel statistics over a period.
type AnalyticsSummary struct {
	TotalViews        int64 `json:"totalViews"`
	TotalWatchTime    int64 `json:"totalWatchTime"`
	TotalLikes        int64 `json:"totalLikes"`
	TotalComments     int64 `json:"totalComments"`
	SubscribersGained int64 `json:"subscribersGained"`
}

// Analytics is a user's dashboard.
type Analytics struct {
	Summary   AnalyticsSummary `json:"summary"`
	TopVideos []Document       `json:"topVideos"`
}

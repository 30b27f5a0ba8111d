package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/12dTa05/CoLy2/pkg/catalog"
)

// JSONB field expressions.
const (
	viewsExpr     = "COALESCE((doc->'stats'->>'views')::bigint, 0)"
	likesExpr     = "COALESCE((doc->'stats'->>'likes')::bigint, 0)"
	commentsExpr  = "COALESCE((doc->'stats'->>'commentCount')::bigint, 0)"
	recentExpr    = "COALESCE((doc->'stats'->>'viewsLast24Hours')::float8, 0)"
	publishedExpr = "(doc->>'publishedAt')::timestamptz"
	createdExpr   = "(doc->>'createdAt')::timestamptz"
	durationExpr  = "COALESCE((doc->>'duration')::float8, 0)"
	textExpr      = "to_tsvector('simple', coalesce(doc->>'title', '') || ' ' || coalesce(doc->>'description', ''))"
	publicFilter  = "doc->>'visibility' = 'public' AND doc->>'status' = 'ready'"
)

// trendingScore weighs recent views 40%, likes 25%, comments 20% and
// penalises age by 0.15 per day.
const trendingScore = "(" + recentExpr + " * 0.4 + " + likesExpr + " * 0.25 + " + commentsExpr + " * 0.2" +
	" - EXTRACT(EPOCH FROM (now() - " + publishedExpr + ")) / 86400 * 0.15)"

// recommendationScore favours the same category (+10), the same uploader
// (+15), shared tags (+1 each), popularity and engagement. $2 is the
// category, $3 the uploader id and $4 the tag list of the reference video.
const recommendationScore = "(" +
	"(CASE WHEN doc->>'category' = $2 THEN 10 ELSE 0 END)" +
	" + (CASE WHEN doc->>'userId' = $3 THEN 15 ELSE 0 END)" +
	" + (SELECT count(*) FROM jsonb_array_elements_text(COALESCE(doc->'tags', '[]'::jsonb)) AS t(tag) WHERE t.tag = ANY($4))" +
	" + log((" + viewsExpr + " + 1)::float8) * 0.1" +
	" + (" + likesExpr + " + " + commentsExpr + ")::float8 / (" + viewsExpr + " + 1) * 100" +
	")"

// searchQuery is a built full-text search.
type searchQuery struct {
	where string
	order string
	args  []any
}

// buildSearch translates a normalized query into SQL fragments. Placeholders
// are numbered from $1.
func buildSearch(q catalog.SearchQuery, now time.Time) searchQuery {
	conds := []string{publicFilter}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var tsQuery string
	if q.Query != "" {
		tsQuery = "plainto_tsquery('simple', " + arg(q.Query) + ")"
		conds = append(conds, textExpr+" @@ "+tsQuery)
	}

	if q.Category != "" {
		conds = append(conds, "doc->>'category' = "+arg(q.Category))
	}

	switch q.Duration {
	case catalog.DurationShort:
		conds = append(conds, durationExpr+" < 240")
	case catalog.DurationMedium:
		conds = append(conds, durationExpr+" >= 240 AND "+durationExpr+" < 1200")
	case catalog.DurationLong:
		conds = append(conds, durationExpr+" >= 1200")
	}

	if since, ok := dateCutoff(q.Date, now); ok {
		conds = append(conds, publishedExpr+" >= "+arg(since))
	}

	var order string
	switch {
	case q.SortBy == catalog.SortViews:
		order = viewsExpr + " DESC"
	case q.SortBy == catalog.SortRelevance && tsQuery != "":
		order = "ts_rank(" + textExpr + ", " + tsQuery + ") DESC"
	default:
		order = publishedExpr + " DESC NULLS LAST"
	}

	return searchQuery{
		where: strings.Join(conds, " AND "),
		order: order,
		args:  args,
	}
}

func dateCutoff(date string, now time.Time) (time.Time, bool) {
	switch date {
	case catalog.DateToday:
		return now.AddDate(0, 0, -1), true
	case catalog.DateWeek:
		return now.AddDate(0, 0, -7), true
	case catalog.DateMonth:
		return now.AddDate(0, 0, -30), true
	case catalog.DateYear:
		return now.AddDate(0, 0, -365), true
	}
	return time.Time{}, false
}

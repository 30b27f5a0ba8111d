// Package testutil provides testing utilities for the CoLy cache.
package testutil

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/12dTa05/CoLy2/pkg/catalog"
)

// FakeSource is an in-memory catalog.Source that counts calls per method.
type FakeSource struct {
	mu        sync.RWMutex
	videos    map[string]catalog.Document
	users     map[string]catalog.Document
	playlists map[string]catalog.Document
	analytics map[string]*catalog.Analytics
	calls     map[string]int

	// Err, when set, is returned by every method
	Err error

	// Delay is applied to every lookup
	Delay time.Duration
}

// NewFakeSource creates an empty fake source.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		videos:    make(map[string]catalog.Document),
		users:     make(map[string]catalog.Document),
		playlists: make(map[string]catalog.Document),
		analytics: make(map[string]*catalog.Analytics),
		calls:     make(map[string]int),
	}
}

// AddVideo stores a video document. The document's "id" field is set to id.
func (f *FakeSource) AddVideo(id string, doc catalog.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[id] = withID(id, doc)
}

// AddUser stores a user document.
func (f *FakeSource) AddUser(id string, doc catalog.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = withID(id, doc)
}

// AddPlaylist stores a playlist document.
func (f *FakeSource) AddPlaylist(id string, doc catalog.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[id] = withID(id, doc)
}

// SetAnalytics stores the dashboard returned for userID.
func (f *FakeSource) SetAnalytics(userID string, a *catalog.Analytics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analytics[userID] = a
}

// Calls returns the number of calls made to method.
func (f *FakeSource) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

func (f *FakeSource) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.Err
	delay := f.Delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// VideoDetails implements catalog.Source.
func (f *FakeSource) VideoDetails(ctx context.Context, videoID string) (*catalog.VideoDetails, error) {
	if err := f.enter(ctx, "VideoDetails"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	video, ok := f.videos[videoID]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	details := &catalog.VideoDetails{Video: copyDoc(video), Comments: []catalog.Document{}}
	if uid, ok := video["userId"].(string); ok {
		if user, ok := f.users[uid]; ok {
			username, _ := user["username"].(string)
			details.Uploader = &catalog.Uploader{ID: uid, Username: username}
		}
	}
	return details, nil
}

// PublicVideos implements catalog.Source.
func (f *FakeSource) PublicVideos(ctx context.Context, page, limit int) (*catalog.Page, error) {
	if err := f.enter(ctx, "PublicVideos"); err != nil {
		return nil, err
	}
	videos := f.publicVideos()
	return paginate(videos, page, limit), nil
}

// Search implements catalog.Source. Only an exact title match is supported
// when a query is given.
func (f *FakeSource) Search(ctx context.Context, q catalog.SearchQuery) (*catalog.Page, error) {
	if err := f.enter(ctx, "Search"); err != nil {
		return nil, err
	}

	var matched []catalog.Document
	for _, v := range f.publicVideos() {
		if q.Query != "" && v["title"] != q.Query {
			continue
		}
		if q.Category != "" && v["category"] != q.Category {
			continue
		}
		matched = append(matched, v)
	}
	return paginate(matched, q.Page, q.Limit), nil
}

// UserProfile implements catalog.Source.
func (f *FakeSource) UserProfile(ctx context.Context, userID string) (catalog.Document, error) {
	if err := f.enter(ctx, "UserProfile"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	user, ok := f.users[userID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return copyDoc(user), nil
}

// Trending implements catalog.Source.
func (f *FakeSource) Trending(ctx context.Context, category string, limit int) ([]catalog.Document, error) {
	if err := f.enter(ctx, "Trending"); err != nil {
		return nil, err
	}

	out := []catalog.Document{}
	for _, v := range f.publicVideos() {
		if category != "" && v["category"] != category {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// Recommendations implements catalog.Source.
func (f *FakeSource) Recommendations(ctx context.Context, videoID string, limit int) ([]catalog.Document, error) {
	if err := f.enter(ctx, "Recommendations"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	_, ok := f.videos[videoID]
	f.mu.RUnlock()
	if !ok {
		return nil, catalog.ErrNotFound
	}

	out := []catalog.Document{}
	for _, v := range f.publicVideos() {
		if v["id"] == videoID {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// Analytics implements catalog.Source.
func (f *FakeSource) Analytics(ctx context.Context, userID string, days int) (*catalog.Analytics, error) {
	if err := f.enter(ctx, "Analytics"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if a, ok := f.analytics[userID]; ok {
		return a, nil
	}
	return &catalog.Analytics{TopVideos: []catalog.Document{}}, nil
}

// Playlist implements catalog.Source.
func (f *FakeSource) Playlist(ctx context.Context, playlistID string) (catalog.Document, error) {
	if err := f.enter(ctx, "Playlist"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return copyDoc(p), nil
}

// UpdateVideo implements catalog.Source.
func (f *FakeSource) UpdateVideo(ctx context.Context, videoID string, fields catalog.Document) (bool, error) {
	return f.update(ctx, "UpdateVideo", f.videos, videoID, fields)
}

// UpdateUser implements catalog.Source.
func (f *FakeSource) UpdateUser(ctx context.Context, userID string, fields catalog.Document) (bool, error) {
	return f.update(ctx, "UpdateUser", f.users, userID, fields)
}

// UpdatePlaylist implements catalog.Source.
func (f *FakeSource) UpdatePlaylist(ctx context.Context, playlistID string, fields catalog.Document) (bool, error) {
	return f.update(ctx, "UpdatePlaylist", f.playlists, playlistID, fields)
}

// update merges fields and reports whether any value changed.
func (f *FakeSource) update(ctx context.Context, method string, docs map[string]catalog.Document, id string, fields catalog.Document) (bool, error) {
	if err := f.enter(ctx, method); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, ok := docs[id]
	if !ok {
		return false, nil
	}

	modified := false
	for k, v := range fields {
		if !reflect.DeepEqual(doc[k], v) {
			doc[k] = v
			modified = true
		}
	}
	return modified, nil
}

// publicVideos returns public, ready videos sorted by id.
func (f *FakeSource) publicVideos() []catalog.Document {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.videos))
	for id, v := range f.videos {
		if v["visibility"] == "public" && v["status"] == "ready" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]catalog.Document, len(ids))
	for i, id := range ids {
		out[i] = copyDoc(f.videos[id])
	}
	return out
}

func paginate(videos []catalog.Document, page, limit int) *catalog.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	total := int64(len(videos))
	start := (page - 1) * limit
	if start > len(videos) {
		start = len(videos)
	}
	end := start + limit
	if end > len(videos) {
		end = len(videos)
	}
	return catalog.NewPage(videos[start:end], total, page, limit)
}

func withID(id string, doc catalog.Document) catalog.Document {
	out := copyDoc(doc)
	out["id"] = id
	return out
}

func copyDoc(doc catalog.Document) catalog.Document {
	out := make(catalog.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// PublicVideo returns a public, ready video document.
func PublicVideo(title, category string) catalog.Document {
	return catalog.Document{
		"title":      title,
		"category":   category,
		"visibility": "public",
		"status":     "ready",
	}
}

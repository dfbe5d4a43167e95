// Package library holds the client-side track lists: the favorites list (which doubles
// as the playback queue) and the current search results.
//
// Both lists are replaced wholesale. When fetches overlap, the most recently issued one
// wins and older completions are discarded.
package library

import (
	"context"
	"slices"
	"sync"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/shared"
)

// FavoritesCatalog is the remote side of the favorites list.
type FavoritesCatalog interface {
	ListFavorites(ctx context.Context) []models.Track
	AddFavorite(ctx context.Context, track models.Track) error
	RemoveFavorite(ctx context.Context, track models.Track) error
}

// SearchCatalog runs catalog searches.
type SearchCatalog interface {
	Search(ctx context.Context, query string) []models.Track
}

// list is an ordered track slice guarded by a generation counter.
type list struct {
	mu     sync.RWMutex
	tracks []models.Track
	gen    uint64
}

func (l *list) snapshot() []models.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.tracks)
}

func (l *list) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// begin starts a fetch and returns its generation.
func (l *list) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	return l.gen
}

// apply installs tracks if gen is still the latest fetch.
func (l *list) apply(gen uint64, tracks []models.Track) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	l.tracks = slices.Clone(tracks)
	return true
}

// reset empties the list and invalidates every in-flight fetch.
func (l *list) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.tracks = nil
}

// Favorites is the user's favorites list.
type Favorites struct {
	list
	catalog FavoritesCatalog
	sink    notify.Sink
}

// NewFavorites returns an empty favorites list backed by catalog.
func NewFavorites(catalog FavoritesCatalog, sink notify.Sink) *Favorites {
	if sink == nil {
		sink = notify.Discard
	}
	return &Favorites{catalog: catalog, sink: sink}
}

// Tracks returns a copy of the current list.
func (f *Favorites) Tracks() []models.Track {
	return f.snapshot()
}

// Queue is [Favorites.Tracks]; it lets the list serve as the playback queue.
func (f *Favorites) Queue() []models.Track {
	return f.snapshot()
}

// Len returns the number of favorites.
func (f *Favorites) Len() int {
	return f.len()
}

// Contains reports whether a favorite shares title and artist with track.
func (f *Favorites) Contains(track models.Track) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.ContainsFunc(f.tracks, track.SameSong)
}

// TotalSeconds sums the durations of all favorites.
func (f *Favorites) TotalSeconds() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	total := 0
	for _, t := range f.tracks {
		total += t.DurationSeconds
	}
	return total
}

// Refresh replaces the list with the catalog's current favorites.
//
// It returns false when a newer refresh or a [Favorites.Clear] superseded this one.
func (f *Favorites) Refresh(ctx context.Context) bool {
	gen := f.begin()
	return f.apply(gen, f.catalog.ListFavorites(ctx))
}

// Add favorites track and refreshes the list.
//
// A track already present by (title, artist) is rejected with [shared.ErrAlreadyFavorited]
// and an info notification, without any request.
func (f *Favorites) Add(ctx context.Context, track models.Track) error {
	if f.Contains(track) {
		notify.Emit(f.sink, notify.Info, shared.ErrAlreadyFavorited, "Already in favorites")
		return shared.ErrAlreadyFavorited
	}

	if err := f.catalog.AddFavorite(ctx, track); err != nil {
		return err
	}

	f.Refresh(ctx)
	notify.Emit(f.sink, notify.Success, nil, "Added to favorites")
	return nil
}

// Remove unfavorites track and refreshes the list.
func (f *Favorites) Remove(ctx context.Context, track models.Track) error {
	if err := f.catalog.RemoveFavorite(ctx, track); err != nil {
		return err
	}

	f.Refresh(ctx)
	notify.Emit(f.sink, notify.Success, nil, "Removed from favorites")
	return nil
}

// Clear empties the list, e.g. on logout. In-flight refreshes are dropped.
func (f *Favorites) Clear() {
	f.reset()
}

// SearchResults is the list produced by the latest search.
type SearchResults struct {
	list
	catalog SearchCatalog

	qmu   sync.RWMutex
	query string
}

// NewSearchResults returns empty results backed by catalog.
func NewSearchResults(catalog SearchCatalog) *SearchResults {
	return &SearchResults{catalog: catalog}
}

// Tracks returns a copy of the current results.
func (s *SearchResults) Tracks() []models.Track {
	return s.snapshot()
}

// Query returns the query of the last applied search.
func (s *SearchResults) Query() string {
	s.qmu.RLock()
	defer s.qmu.RUnlock()
	return s.query
}

// Search runs query and installs its results unless a later search was issued meanwhile.
func (s *SearchResults) Search(ctx context.Context, query string) (tracks []models.Track, applied bool) {
	gen := s.begin()
	tracks = s.catalog.Search(ctx, query)
	if applied = s.apply(gen, tracks); applied {
		s.qmu.Lock()
		s.query = query
		s.qmu.Unlock()
	}
	return tracks, applied
}

// Find returns the result with id.
func (s *SearchResults) Find(id string) (models.Track, bool) {
	return find(s.snapshot(), id)
}

// Find returns the favorite with id.
func (f *Favorites) Find(id string) (models.Track, bool) {
	return find(f.snapshot(), id)
}

func find(tracks []models.Track, id string) (models.Track, bool) {
	for _, t := range tracks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Track{}, false
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/filters"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
)

// Movies owns the active profile's favorited movies plus the recent and
// upcoming release rails. Genre and streaming-service filter values derive at
// read time behind a dirty-flag memo.
type Movies struct {
	client   api.Doer
	notifier *notify.Notifier

	mu       sync.RWMutex
	state    asyncState
	items    map[int64]models.Movie
	recent   []models.Movie
	upcoming []models.Movie

	filtersDirty  bool
	genreValues   []string
	serviceValues []string
}

// NewMovies creates an empty movies store.
func NewMovies(client api.Doer, notifier *notify.Notifier) *Movies {
	return &Movies{
		client:   client,
		notifier: notifier,
		items:    make(map[int64]models.Movie),
	}
}

// Loading reports whether a fetch is in flight.
func (m *Movies) Loading() bool {
	return stateReader{mu: &m.mu, state: &m.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (m *Movies) Err() *api.Error {
	return stateReader{mu: &m.mu, state: &m.state}.Err()
}

// All returns the favorited movies sorted by title.
func (m *Movies) All() []models.Movie {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Movie, 0, len(m.items))
	for _, movie := range m.items {
		out = append(out, movie)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// ByID returns the movie with the given ID.
func (m *Movies) ByID(id int64) (models.Movie, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	movie, ok := m.items[id]
	return movie, ok
}

// RecentReleases returns the recent releases rail.
func (m *Movies) RecentReleases() []models.Movie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Movie, len(m.recent))
	copy(out, m.recent)
	return out
}

// UpcomingReleases returns the upcoming releases rail.
func (m *Movies) UpcomingReleases() []models.Movie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Movie, len(m.upcoming))
	copy(out, m.upcoming)
	return out
}

// GenreFilterValues returns the memoized genre filter set for the loaded
// collection, recomputing only when the collection changed since last read.
func (m *Movies) GenreFilterValues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshFiltersLocked()

	out := make([]string, len(m.genreValues))
	copy(out, m.genreValues)
	return out
}

// StreamingServiceFilterValues returns the memoized streaming-service filter
// set for the loaded collection.
func (m *Movies) StreamingServiceFilterValues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshFiltersLocked()

	out := make([]string, len(m.serviceValues))
	copy(out, m.serviceValues)
	return out
}

// refreshFiltersLocked recomputes the filter memo when dirty.
// Caller must hold m.mu for writing.
func (m *Movies) refreshFiltersLocked() {
	if !m.filtersDirty {
		return
	}

	collection := make([]models.Movie, 0, len(m.items))
	for _, movie := range m.items {
		collection = append(collection, movie)
	}
	m.genreValues = filters.GenreValues(collection)
	m.serviceValues = filters.StreamingServiceValues(collection)
	m.filtersDirty = false
}

// Fetch replaces the favorited-movie collection for the profile.
func (m *Movies) Fetch(ctx context.Context, profileID int64) error {
	m.mu.Lock()
	gen := m.state.begin()
	m.mu.Unlock()

	var fetched []models.Movie
	err := m.client.Get(ctx, fmt.Sprintf("/profiles/%d/movies", profileID), &fetched)
	recordOp("movies", "fetch", err)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.current(gen) {
		return nil
	}
	if err != nil {
		apiErr := m.state.reject(err)
		m.notifier.Error(apiErr.MessageOr("Could not load your movies."))
		return err
	}

	m.state.fulfill()
	m.items = make(map[int64]models.Movie, len(fetched))
	for _, movie := range fetched {
		m.items[movie.ID] = movie
	}
	m.filtersDirty = true
	return nil
}

// FetchReleases loads the recent and upcoming release rails for the profile.
func (m *Movies) FetchReleases(ctx context.Context, profileID int64) error {
	var rails struct {
		Recent   []models.Movie `json:"recent"`
		Upcoming []models.Movie `json:"upcoming"`
	}
	err := m.client.Get(ctx, fmt.Sprintf("/profiles/%d/movies/releases", profileID), &rails)
	recordOp("movies", "fetch_releases", err)
	if err != nil {
		m.fail(err, "Could not load movie releases.")
		return err
	}

	m.mu.Lock()
	m.state.fulfill()
	m.recent = rails.Recent
	m.upcoming = rails.Upcoming
	m.mu.Unlock()
	return nil
}

// AddFavorite favorites a movie for the profile. The server returns the full
// movie record with the profile's watch status.
func (m *Movies) AddFavorite(ctx context.Context, profileID, movieID int64) (*models.Movie, error) {
	var added models.Movie
	path := fmt.Sprintf("/profiles/%d/movies/favorites", profileID)
	err := m.client.Post(ctx, path, map[string]int64{"movieId": movieID}, &added)
	recordOp("movies", "add_favorite", err)
	if err != nil {
		m.fail(err, "Could not add the movie to your favorites.")
		return nil, err
	}

	m.Upsert(added)
	m.notifier.Success(fmt.Sprintf("%s added to favorites.", added.Title))
	return &added, nil
}

// RemoveFavorite unfavorites a movie.
func (m *Movies) RemoveFavorite(ctx context.Context, profileID, movieID int64) error {
	path := fmt.Sprintf("/profiles/%d/movies/favorites/%d", profileID, movieID)
	err := m.client.Delete(ctx, path, nil)
	recordOp("movies", "remove_favorite", err)
	if err != nil {
		m.fail(err, "Could not remove the movie from your favorites.")
		return err
	}

	m.mu.Lock()
	m.state.fulfill()
	delete(m.items, movieID)
	m.filtersDirty = true
	m.mu.Unlock()

	m.notifier.Success("Movie removed from favorites.")
	return nil
}

// UpdateWatchStatus sets the profile's watch status for a movie. State
// changes only after the server confirms with the updated record.
func (m *Movies) UpdateWatchStatus(ctx context.Context, profileID, movieID int64, status models.WatchStatus) (*models.Movie, error) {
	var updated models.Movie
	path := fmt.Sprintf("/profiles/%d/movies/watchstatus", profileID)
	body := map[string]any{"movieId": movieID, "status": status}
	err := m.client.Put(ctx, path, body, &updated)
	recordOp("movies", "update_watch_status", err)
	if err != nil {
		m.fail(err, "Could not update the movie's watch status.")
		return nil, err
	}

	m.Upsert(updated)
	return &updated, nil
}

// Upsert merges one movie record into the collection. Used by mutations and
// by the realtime bridge's incremental favorite patches.
func (m *Movies) Upsert(movie models.Movie) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.fulfill()
	m.items[movie.ID] = movie
	m.filtersDirty = true
}

// ApplyWatchStatus patches a movie's watch status in place when present.
// Unknown IDs are ignored.
func (m *Movies) ApplyWatchStatus(movieID int64, status models.WatchStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie, ok := m.items[movieID]
	if !ok {
		return
	}
	movie.WatchStatus = status
	m.items[movieID] = movie
}

// Reset implements Resetter.
func (m *Movies) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.reset()
	m.items = make(map[int64]models.Movie)
	m.recent = nil
	m.upcoming = nil
	m.genreValues = nil
	m.serviceValues = nil
	m.filtersDirty = false
}

func (m *Movies) fail(err error, fallback string) {
	m.mu.Lock()
	apiErr := m.state.reject(err)
	m.mu.Unlock()
	m.notifier.Error(apiErr.MessageOr(fallback))
}

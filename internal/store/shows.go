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

// Shows owns the active profile's favorited shows. List records never carry
// seasons; FetchSeasons hydrates one show at a time and a show-level watch
// status change replaces the whole record, seasons included, with whatever
// the server cascaded.
type Shows struct {
	client   api.Doer
	notifier *notify.Notifier

	mu    sync.RWMutex
	state asyncState
	items map[int64]models.Show

	filtersDirty  bool
	genreValues   []string
	serviceValues []string
}

// NewShows creates an empty shows store.
func NewShows(client api.Doer, notifier *notify.Notifier) *Shows {
	return &Shows{
		client:   client,
		notifier: notifier,
		items:    make(map[int64]models.Show),
	}
}

// Loading reports whether a fetch is in flight.
func (s *Shows) Loading() bool {
	return stateReader{mu: &s.mu, state: &s.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (s *Shows) Err() *api.Error {
	return stateReader{mu: &s.mu, state: &s.state}.Err()
}

// All returns the favorited shows sorted by title.
func (s *Shows) All() []models.Show {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Show, 0, len(s.items))
	for _, show := range s.items {
		out = append(out, show)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// ByID returns the show with the given ID.
func (s *Shows) ByID(id int64) (models.Show, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	show, ok := s.items[id]
	return show, ok
}

// GenreFilterValues returns the memoized genre filter set.
func (s *Shows) GenreFilterValues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFiltersLocked()

	out := make([]string, len(s.genreValues))
	copy(out, s.genreValues)
	return out
}

// StreamingServiceFilterValues returns the memoized streaming-service filter set.
func (s *Shows) StreamingServiceFilterValues() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFiltersLocked()

	out := make([]string, len(s.serviceValues))
	copy(out, s.serviceValues)
	return out
}

func (s *Shows) refreshFiltersLocked() {
	if !s.filtersDirty {
		return
	}

	collection := make([]models.Show, 0, len(s.items))
	for _, show := range s.items {
		collection = append(collection, show)
	}
	s.genreValues = filters.GenreValues(collection)
	s.serviceValues = filters.StreamingServiceValues(collection)
	s.filtersDirty = false
}

// Fetch replaces the favorited-show collection for the profile.
func (s *Shows) Fetch(ctx context.Context, profileID int64) error {
	s.mu.Lock()
	gen := s.state.begin()
	s.mu.Unlock()

	var fetched []models.Show
	err := s.client.Get(ctx, fmt.Sprintf("/profiles/%d/shows", profileID), &fetched)
	recordOp("shows", "fetch", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.current(gen) {
		return nil
	}
	if err != nil {
		apiErr := s.state.reject(err)
		s.notifier.Error(apiErr.MessageOr("Could not load your shows."))
		return err
	}

	s.state.fulfill()
	s.items = make(map[int64]models.Show, len(fetched))
	for _, show := range fetched {
		s.items[show.ID] = show
	}
	s.filtersDirty = true
	return nil
}

// FetchSeasons hydrates one show's seasons and episodes.
func (s *Shows) FetchSeasons(ctx context.Context, profileID, showID int64) ([]models.Season, error) {
	var seasons []models.Season
	path := fmt.Sprintf("/profiles/%d/shows/%d/seasons", profileID, showID)
	err := s.client.Get(ctx, path, &seasons)
	recordOp("shows", "fetch_seasons", err)
	if err != nil {
		s.fail(err, "Could not load the show's seasons.")
		return nil, err
	}

	s.mu.Lock()
	s.state.fulfill()
	if show, ok := s.items[showID]; ok {
		show.Seasons = seasons
		s.items[showID] = show
	}
	s.mu.Unlock()
	return seasons, nil
}

// AddFavorite favorites a show for the profile.
func (s *Shows) AddFavorite(ctx context.Context, profileID, showID int64) (*models.Show, error) {
	var added models.Show
	path := fmt.Sprintf("/profiles/%d/shows/favorites", profileID)
	err := s.client.Post(ctx, path, map[string]int64{"showId": showID}, &added)
	recordOp("shows", "add_favorite", err)
	if err != nil {
		s.fail(err, "Could not add the show to your favorites.")
		return nil, err
	}

	s.Upsert(added)
	s.notifier.Success(fmt.Sprintf("%s added to favorites.", added.Title))
	return &added, nil
}

// RemoveFavorite unfavorites a show.
func (s *Shows) RemoveFavorite(ctx context.Context, profileID, showID int64) error {
	path := fmt.Sprintf("/profiles/%d/shows/favorites/%d", profileID, showID)
	err := s.client.Delete(ctx, path, nil)
	recordOp("shows", "remove_favorite", err)
	if err != nil {
		s.fail(err, "Could not remove the show from your favorites.")
		return err
	}

	s.mu.Lock()
	s.state.fulfill()
	delete(s.items, showID)
	s.filtersDirty = true
	s.mu.Unlock()

	s.notifier.Success("Show removed from favorites.")
	return nil
}

// UpdateWatchStatus sets the show-level watch status. The server cascades the
// change through seasons and episodes and returns the full updated record.
func (s *Shows) UpdateWatchStatus(ctx context.Context, profileID, showID int64, status models.WatchStatus) (*models.Show, error) {
	var updated models.Show
	path := fmt.Sprintf("/profiles/%d/shows/watchstatus", profileID)
	body := map[string]any{"showId": showID, "status": status}
	err := s.client.Put(ctx, path, body, &updated)
	recordOp("shows", "update_watch_status", err)
	if err != nil {
		s.fail(err, "Could not update the show's watch status.")
		return nil, err
	}

	s.Upsert(updated)
	return &updated, nil
}

// UpdateEpisodeWatchStatus marks a single episode. The server recomputes the
// season and show rollups and returns the owning show, which replaces the
// cached record wholesale.
func (s *Shows) UpdateEpisodeWatchStatus(ctx context.Context, profileID, episodeID int64, status models.WatchStatus) (*models.Show, error) {
	var updated models.Show
	path := fmt.Sprintf("/profiles/%d/episodes/watchstatus", profileID)
	body := map[string]any{"episodeId": episodeID, "status": status}
	err := s.client.Put(ctx, path, body, &updated)
	recordOp("shows", "update_episode_watch_status", err)
	if err != nil {
		s.fail(err, "Could not update the episode's watch status.")
		return nil, err
	}

	s.Upsert(updated)
	return &updated, nil
}

// Upsert merges one show record into the collection. When the incoming record
// has no seasons but the cached one does, the hydrated seasons are kept.
func (s *Shows) Upsert(show models.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.fulfill()
	if existing, ok := s.items[show.ID]; ok && show.Seasons == nil {
		show.Seasons = existing.Seasons
	}
	s.items[show.ID] = show
	s.filtersDirty = true
}

// Reset implements Resetter.
func (s *Shows) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.reset()
	s.items = make(map[int64]models.Show)
	s.genreValues = nil
	s.serviceValues = nil
	s.filtersDirty = false
}

func (s *Shows) fail(err error, fallback string) {
	s.mu.Lock()
	apiErr := s.state.reject(err)
	s.mu.Unlock()
	s.notifier.Error(apiErr.MessageOr(fallback))
}

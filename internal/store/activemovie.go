// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
)

// ActiveMovie holds the movie currently open in a detail view, with its cast
// and recommendations. Realtime watch-status patches only land when they name
// the loaded movie; everything else is ignored, including patches arriving
// while nothing is loaded.
type ActiveMovie struct {
	client   api.Doer
	notifier *notify.Notifier

	mu              sync.RWMutex
	state           asyncState
	movie           *models.Movie
	cast            []models.CastMember
	recommendations []models.Movie
}

// NewActiveMovie creates an empty active-movie store.
func NewActiveMovie(client api.Doer, notifier *notify.Notifier) *ActiveMovie {
	return &ActiveMovie{client: client, notifier: notifier}
}

// Loading reports whether a load is in flight.
func (a *ActiveMovie) Loading() bool {
	return stateReader{mu: &a.mu, state: &a.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (a *ActiveMovie) Err() *api.Error {
	return stateReader{mu: &a.mu, state: &a.state}.Err()
}

// Current returns the loaded movie, or nil.
func (a *ActiveMovie) Current() *models.Movie {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.movie == nil {
		return nil
	}
	m := *a.movie
	return &m
}

// Cast returns the loaded movie's cast.
func (a *ActiveMovie) Cast() []models.CastMember {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.CastMember, len(a.cast))
	copy(out, a.cast)
	return out
}

// Recommendations returns movies recommended alongside the loaded one.
func (a *ActiveMovie) Recommendations() []models.Movie {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Movie, len(a.recommendations))
	copy(out, a.recommendations)
	return out
}

// Load fetches a movie's detail bundle for the profile. A stale response for
// a previously requested movie is discarded.
func (a *ActiveMovie) Load(ctx context.Context, profileID, movieID int64) error {
	a.mu.Lock()
	gen := a.state.begin()
	a.mu.Unlock()

	var details struct {
		Movie           models.Movie        `json:"movie"`
		Cast            []models.CastMember `json:"cast"`
		Recommendations []models.Movie      `json:"recommendations"`
	}
	path := fmt.Sprintf("/profiles/%d/movies/%d/details", profileID, movieID)
	err := a.client.Get(ctx, path, &details)
	recordOp("active_movie", "load", err)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.current(gen) {
		return nil
	}
	if err != nil {
		apiErr := a.state.reject(err)
		a.notifier.Error(apiErr.MessageOr("Could not load the movie."))
		return err
	}

	a.state.fulfill()
	a.movie = &details.Movie
	a.cast = details.Cast
	a.recommendations = details.Recommendations
	return nil
}

// ApplyWatchStatus patches the loaded movie's watch status when the payload
// names it. Patches for other movies, or with no movie loaded, are no-ops.
func (a *ActiveMovie) ApplyWatchStatus(movieID int64, status models.WatchStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.movie == nil || a.movie.ID != movieID {
		return
	}
	a.movie.WatchStatus = status
}

// Clear unloads the detail view without touching the error state.
func (a *ActiveMovie) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.movie = nil
	a.cast = nil
	a.recommendations = nil
}

// Reset implements Resetter.
func (a *ActiveMovie) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.reset()
	a.movie = nil
	a.cast = nil
	a.recommendations = nil
}

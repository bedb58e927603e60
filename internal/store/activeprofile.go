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

// EpisodeRails are the active profile's dashboard episode lists, computed
// server-side from the favorited shows.
type EpisodeRails struct {
	Recent        []models.Episode `json:"recentEpisodes"`
	Upcoming      []models.Episode `json:"upcomingEpisodes"`
	NextUnwatched []models.Episode `json:"nextUnwatchedEpisodes"`
}

// profileDetails is the bundled response of the profile details endpoint.
type profileDetails struct {
	Profile    models.Profile           `json:"profile"`
	Episodes   EpisodeRails             `json:"episodes"`
	Statistics models.ProfileStatistics `json:"statistics"`
}

// ActiveProfile tracks which profile the session is acting as, plus that
// profile's dashboard bundle. Activating a profile loads its details; the
// content stores are reloaded by the session coordinator, not here.
type ActiveProfile struct {
	client   api.Doer
	notifier *notify.Notifier

	mu      sync.RWMutex
	state   asyncState
	profile *models.Profile
	rails   EpisodeRails
	stats   models.ProfileStatistics
}

// NewActiveProfile creates an empty active-profile store.
func NewActiveProfile(client api.Doer, notifier *notify.Notifier) *ActiveProfile {
	return &ActiveProfile{client: client, notifier: notifier}
}

// Loading reports whether an activation fetch is in flight.
func (a *ActiveProfile) Loading() bool {
	return stateReader{mu: &a.mu, state: &a.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (a *ActiveProfile) Err() *api.Error {
	return stateReader{mu: &a.mu, state: &a.state}.Err()
}

// Current returns the active profile, or nil when none is selected.
func (a *ActiveProfile) Current() *models.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.profile == nil {
		return nil
	}
	p := *a.profile
	return &p
}

// CurrentID returns the active profile's ID, or false when none is selected.
func (a *ActiveProfile) CurrentID() (int64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.profile == nil {
		return 0, false
	}
	return a.profile.ID, true
}

// Episodes returns the dashboard episode rails.
func (a *ActiveProfile) Episodes() EpisodeRails {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rails
}

// Statistics returns the profile's dashboard statistics.
func (a *ActiveProfile) Statistics() models.ProfileStatistics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Activate makes the given profile current and loads its dashboard bundle.
// A stale response for a previously activated profile is discarded.
func (a *ActiveProfile) Activate(ctx context.Context, profileID int64) error {
	a.mu.Lock()
	gen := a.state.begin()
	a.mu.Unlock()

	var details profileDetails
	err := a.client.Get(ctx, fmt.Sprintf("/profiles/%d/details", profileID), &details)
	recordOp("active_profile", "activate", err)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.current(gen) {
		return nil
	}
	if err != nil {
		apiErr := a.state.reject(err)
		a.notifier.Error(apiErr.MessageOr("Could not switch profiles."))
		return err
	}

	a.state.fulfill()
	a.profile = &details.Profile
	a.rails = details.Episodes
	a.stats = details.Statistics
	return nil
}

// Refresh reloads the dashboard bundle for the current profile. No-op when
// no profile is active.
func (a *ActiveProfile) Refresh(ctx context.Context) error {
	id, ok := a.CurrentID()
	if !ok {
		return nil
	}
	return a.Activate(ctx, id)
}

// ApplyProfilePatch updates the active profile's metadata in place when the
// patched profile is the current one. Other profiles are ignored.
func (a *ActiveProfile) ApplyProfilePatch(profile models.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.profile == nil || a.profile.ID != profile.ID {
		return
	}
	a.profile = &profile
}

// Reset implements Resetter.
func (a *ActiveProfile) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.reset()
	a.profile = nil
	a.rails = EpisodeRails{}
	a.stats = models.ProfileStatistics{}
}

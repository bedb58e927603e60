// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/cache"
	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
)

// Preferences owns the account's preference sub-objects, mirrored to the
// snapshot cache. A failed fetch leaves the previous value in place.
type Preferences struct {
	client    api.Doer
	snapshots *cache.Store
	notifier  *notify.Notifier

	mu    sync.RWMutex
	state asyncState
	prefs models.AccountPreferences
}

// NewPreferences creates the preferences store, seeding from the snapshot
// cache when a snapshot exists.
func NewPreferences(client api.Doer, snapshots *cache.Store, notifier *notify.Notifier) *Preferences {
	p := &Preferences{
		client:    client,
		snapshots: snapshots,
		notifier:  notifier,
	}

	if snapshots != nil {
		var seed models.AccountPreferences
		if err := snapshots.Get(cache.KeyPreferences, &seed); err == nil {
			p.prefs = seed
			logging.Debug().Msg("preferences seeded from snapshot cache")
		} else if !errors.Is(err, cache.ErrSnapshotNotFound) {
			logging.Warn().Err(err).Msg("preferences snapshot seed failed")
		}
	}

	return p
}

// Loading reports whether a fetch is in flight.
func (p *Preferences) Loading() bool {
	return stateReader{mu: &p.mu, state: &p.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (p *Preferences) Err() *api.Error {
	return stateReader{mu: &p.mu, state: &p.state}.Err()
}

// Current returns the account's preferences.
func (p *Preferences) Current() models.AccountPreferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs
}

// Fetch loads the account's preferences. On failure the prior value stays.
func (p *Preferences) Fetch(ctx context.Context, accountID int64) error {
	p.mu.Lock()
	gen := p.state.begin()
	p.mu.Unlock()

	var fetched models.AccountPreferences
	err := p.client.Get(ctx, fmt.Sprintf("/accounts/%d/preferences", accountID), &fetched)
	recordOp("preferences", "fetch", err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.current(gen) {
		return nil
	}
	if err != nil {
		apiErr := p.state.reject(err)
		p.notifier.Error(apiErr.MessageOr("Could not load your preferences."))
		return err
	}

	p.state.fulfill()
	p.prefs = fetched
	p.persistLocked()
	return nil
}

// Update applies a partial preferences mutation. Only the sub-objects set on
// update are sent; the server merges and returns the full preferences record,
// which replaces local state.
func (p *Preferences) Update(ctx context.Context, accountID int64, update models.PreferencesUpdate) error {
	var merged models.AccountPreferences
	path := fmt.Sprintf("/accounts/%d/preferences", accountID)
	err := p.client.Put(ctx, path, update, &merged)
	recordOp("preferences", "update", err)
	if err != nil {
		p.mu.Lock()
		apiErr := p.state.reject(err)
		p.mu.Unlock()
		p.notifier.Error(apiErr.MessageOr("Could not save your preferences."))
		return err
	}

	p.mu.Lock()
	p.state.fulfill()
	p.prefs = merged
	p.persistLocked()
	p.mu.Unlock()

	p.notifier.Success("Preferences saved.")
	return nil
}

// Reset implements Resetter.
func (p *Preferences) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.reset()
	p.prefs = models.AccountPreferences{}
	if p.snapshots != nil {
		if err := p.snapshots.Delete(cache.KeyPreferences); err != nil {
			logging.Warn().Err(err).Msg("preferences snapshot delete failed")
		}
	}
}

// persistLocked mirrors the preferences to the snapshot cache.
// Caller must hold p.mu.
func (p *Preferences) persistLocked() {
	if p.snapshots == nil {
		return
	}
	if err := p.snapshots.Set(cache.KeyPreferences, p.prefs); err != nil {
		logging.Warn().Err(err).Msg("preferences snapshot persist failed")
	}
}

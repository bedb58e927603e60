// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/cache"
	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
)

// Profiles owns the account's viewing profiles.
//
// The collection is normalized by profile ID and mirrored to the snapshot
// cache on every successful mutation. Construction eagerly seeds from the
// cache; the post-sign-in network fetch supersedes the seed.
type Profiles struct {
	client    api.Doer
	snapshots *cache.Store
	notifier  *notify.Notifier

	mu    sync.RWMutex
	state asyncState
	items map[int64]models.Profile
}

// NewProfiles creates the profiles store, seeding from the snapshot cache
// when a snapshot exists.
func NewProfiles(client api.Doer, snapshots *cache.Store, notifier *notify.Notifier) *Profiles {
	p := &Profiles{
		client:    client,
		snapshots: snapshots,
		notifier:  notifier,
		items:     make(map[int64]models.Profile),
	}

	if snapshots != nil {
		var seed []models.Profile
		if err := snapshots.Get(cache.KeyProfiles, &seed); err == nil {
			for _, profile := range seed {
				p.items[profile.ID] = profile
			}
			logging.Debug().Int("count", len(seed)).Msg("profiles seeded from snapshot cache")
		} else if !errors.Is(err, cache.ErrSnapshotNotFound) {
			logging.Warn().Err(err).Msg("profiles snapshot seed failed")
		}
	}

	return p
}

// Loading reports whether a fetch is in flight.
func (p *Profiles) Loading() bool {
	return stateReader{mu: &p.mu, state: &p.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (p *Profiles) Err() *api.Error {
	return stateReader{mu: &p.mu, state: &p.state}.Err()
}

// All returns the profiles sorted by ID.
func (p *Profiles) All() []models.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.Profile, 0, len(p.items))
	for _, profile := range p.items {
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByID returns the profile with the given ID.
func (p *Profiles) ByID(id int64) (models.Profile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.items[id]
	return profile, ok
}

// Fetch replaces the collection with the server's profile list for the
// account. On failure prior data stays put and Err is set.
func (p *Profiles) Fetch(ctx context.Context, accountID int64) error {
	p.mu.Lock()
	gen := p.state.begin()
	p.mu.Unlock()

	var fetched []models.Profile
	err := p.client.Get(ctx, fmt.Sprintf("/accounts/%d/profiles", accountID), &fetched)
	recordOp("profiles", "fetch", err)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.current(gen) {
		// A newer fetch or a reset superseded this response.
		return nil
	}
	if err != nil {
		apiErr := p.state.reject(err)
		p.notifier.Error(apiErr.MessageOr("Could not load your profiles."))
		return err
	}

	p.state.fulfill()
	p.items = make(map[int64]models.Profile, len(fetched))
	for _, profile := range fetched {
		p.items[profile.ID] = profile
	}
	p.persistLocked()
	return nil
}

// Create adds a profile to the account. State changes only after the server
// confirms.
func (p *Profiles) Create(ctx context.Context, accountID int64, name string) (*models.Profile, error) {
	var created models.Profile
	err := p.client.Post(ctx, fmt.Sprintf("/accounts/%d/profiles", accountID), map[string]string{"name": name}, &created)
	recordOp("profiles", "create", err)
	if err != nil {
		p.fail(err, "Could not add the profile.")
		return nil, err
	}

	p.upsert(created)
	p.notifier.Success(fmt.Sprintf("Profile %s added.", created.Name))
	return &created, nil
}

// Update renames a profile.
func (p *Profiles) Update(ctx context.Context, accountID, profileID int64, name string) (*models.Profile, error) {
	var updated models.Profile
	path := fmt.Sprintf("/accounts/%d/profiles/%d", accountID, profileID)
	err := p.client.Put(ctx, path, map[string]string{"name": name}, &updated)
	recordOp("profiles", "update", err)
	if err != nil {
		p.fail(err, "Could not update the profile.")
		return nil, err
	}

	p.upsert(updated)
	p.notifier.Success(fmt.Sprintf("Profile %s updated.", updated.Name))
	return &updated, nil
}

// UpdateImage replaces a profile's image sub-resource.
func (p *Profiles) UpdateImage(ctx context.Context, accountID, profileID int64, image string) (*models.Profile, error) {
	var updated models.Profile
	path := fmt.Sprintf("/accounts/%d/profiles/%d/image", accountID, profileID)
	err := p.client.Post(ctx, path, map[string]string{"image": image}, &updated)
	recordOp("profiles", "update_image", err)
	if err != nil {
		p.fail(err, "Could not update the profile image.")
		return nil, err
	}

	p.upsert(updated)
	return &updated, nil
}

// Delete removes a profile.
func (p *Profiles) Delete(ctx context.Context, accountID, profileID int64) error {
	path := fmt.Sprintf("/accounts/%d/profiles/%d", accountID, profileID)
	err := p.client.Delete(ctx, path, nil)
	recordOp("profiles", "delete", err)
	if err != nil {
		p.fail(err, "Could not delete the profile.")
		return err
	}

	p.mu.Lock()
	p.state.fulfill()
	delete(p.items, profileID)
	p.persistLocked()
	p.mu.Unlock()

	p.notifier.Success("Profile deleted.")
	return nil
}

// Reset implements Resetter.
func (p *Profiles) Reset() {
	p.mu.Lock()
	p.state.reset()
	p.items = make(map[int64]models.Profile)
	p.mu.Unlock()

	if p.snapshots != nil {
		if err := p.snapshots.Delete(cache.KeyProfiles); err != nil {
			logging.Warn().Err(err).Msg("profiles snapshot clear failed")
		}
	}
}

func (p *Profiles) upsert(profile models.Profile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.fulfill()
	p.items[profile.ID] = profile
	p.persistLocked()
}

func (p *Profiles) fail(err error, fallback string) {
	p.mu.Lock()
	apiErr := p.state.reject(err)
	p.mu.Unlock()
	p.notifier.Error(apiErr.MessageOr(fallback))
}

// persistLocked mirrors the collection to the snapshot cache.
// Caller must hold p.mu.
func (p *Profiles) persistLocked() {
	if p.snapshots == nil {
		return
	}

	out := make([]models.Profile, 0, len(p.items))
	for _, profile := range p.items {
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if err := p.snapshots.Set(cache.KeyProfiles, out); err != nil {
		logging.Warn().Err(err).Msg("profiles snapshot write failed")
	}
}

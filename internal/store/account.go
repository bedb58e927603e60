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

// Account owns the signed-in account record. The session layer sets it after
// a successful sign-in exchange; edits go through Update/UpdateImage.
type Account struct {
	client    api.Doer
	snapshots *cache.Store
	notifier  *notify.Notifier

	mu      sync.RWMutex
	state   asyncState
	account *models.Account
}

// NewAccount creates the account store, seeding from the snapshot cache when
// a snapshot exists.
func NewAccount(client api.Doer, snapshots *cache.Store, notifier *notify.Notifier) *Account {
	a := &Account{client: client, snapshots: snapshots, notifier: notifier}

	if snapshots != nil {
		var seed models.Account
		if err := snapshots.Get(cache.KeyAccount, &seed); err == nil {
			a.account = &seed
		} else if !errors.Is(err, cache.ErrSnapshotNotFound) {
			logging.Warn().Err(err).Msg("account snapshot seed failed")
		}
	}

	return a
}

// Err returns the last operation failure, or nil.
func (a *Account) Err() *api.Error {
	return stateReader{mu: &a.mu, state: &a.state}.Err()
}

// Current returns the signed-in account record, or false when none is set.
func (a *Account) Current() (models.Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.account == nil {
		return models.Account{}, false
	}
	return *a.account, true
}

// Set replaces the account record. Used by the session layer after sign-in.
func (a *Account) Set(account models.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.fulfill()
	a.account = &account
	a.persistLocked()
}

// Update edits the account's name and email.
func (a *Account) Update(ctx context.Context, name, email string) error {
	a.mu.RLock()
	current := a.account
	a.mu.RUnlock()
	if current == nil {
		return errors.New("store: no signed-in account")
	}

	var updated models.Account
	body := map[string]string{"name": name, "email": email}
	err := a.client.Put(ctx, fmt.Sprintf("/accounts/%d", current.ID), body, &updated)
	recordOp("account", "update", err)
	if err != nil {
		a.fail(err, "Could not update your account.")
		return err
	}

	a.Set(updated)
	a.notifier.Success("Account updated.")
	return nil
}

// UpdateImage replaces the account image.
func (a *Account) UpdateImage(ctx context.Context, image string) error {
	a.mu.RLock()
	current := a.account
	a.mu.RUnlock()
	if current == nil {
		return errors.New("store: no signed-in account")
	}

	var updated models.Account
	path := fmt.Sprintf("/accounts/%d/image", current.ID)
	err := a.client.Post(ctx, path, map[string]string{"image": image}, &updated)
	recordOp("account", "update_image", err)
	if err != nil {
		a.fail(err, "Could not update your account image.")
		return err
	}

	a.Set(updated)
	return nil
}

// Reset implements Resetter.
func (a *Account) Reset() {
	a.mu.Lock()
	a.state.reset()
	a.account = nil
	a.mu.Unlock()

	if a.snapshots != nil {
		if err := a.snapshots.Delete(cache.KeyAccount); err != nil {
			logging.Warn().Err(err).Msg("account snapshot clear failed")
		}
	}
}

func (a *Account) fail(err error, fallback string) {
	a.mu.Lock()
	apiErr := a.state.reject(err)
	a.mu.Unlock()
	a.notifier.Error(apiErr.MessageOr(fallback))
}

// persistLocked mirrors the account to the snapshot cache.
// Caller must hold a.mu.
func (a *Account) persistLocked() {
	if a.snapshots == nil || a.account == nil {
		return
	}
	if err := a.snapshots.Set(cache.KeyAccount, a.account); err != nil {
		logging.Warn().Err(err).Msg("account snapshot write failed")
	}
}

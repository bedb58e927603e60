// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package session coordinates the cross-store lifecycle: sign-in and
// registration against the identity provider, the account exchange with the
// API server, post-login fan-out into the entity stores, profile switching,
// and the logout teardown that resets every store and purges the snapshot
// cache.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/auth"
	"github.com/tomtom215/keepwatching/internal/cache"
	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
	"github.com/tomtom215/keepwatching/internal/store"
	"github.com/tomtom215/keepwatching/internal/validation"
)

// Stores bundles the entity stores the manager coordinates.
type Stores struct {
	Account       *store.Account
	Profiles      *store.Profiles
	Movies        *store.Movies
	Shows         *store.Shows
	ActiveProfile *store.ActiveProfile
	ActiveMovie   *store.ActiveMovie
	Preferences   *store.Preferences
	Notifications *store.Notifications
}

func (s *Stores) resetters() []store.Resetter {
	return []store.Resetter{
		s.Account,
		s.Profiles,
		s.Movies,
		s.Shows,
		s.ActiveProfile,
		s.ActiveMovie,
		s.Preferences,
		s.Notifications,
	}
}

// LoginRequest carries email/password credentials.
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// RegisterRequest carries the fields for a new account.
type RegisterRequest struct {
	Name     string `validate:"required,min=1,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// Manager is the session coordinator. All operations are safe for concurrent
// use; the stores serialize their own mutations.
type Manager struct {
	provider  auth.Provider
	client    api.Doer
	snapshots *cache.Store
	notifier  *notify.Notifier
	stores    Stores

	hookMu sync.Mutex
	hooks  []store.Resetter
}

// NewManager wires the session coordinator. snapshots may be nil for
// cache-less runs.
func NewManager(provider auth.Provider, client api.Doer, snapshots *cache.Store, notifier *notify.Notifier, stores Stores) *Manager {
	return &Manager{
		provider:  provider,
		client:    client,
		snapshots: snapshots,
		notifier:  notifier,
		stores:    stores,
	}
}

// RegisterResetter adds a teardown hook invoked on logout and account
// deletion, after the entity stores reset. The realtime bridge registers
// itself here so the socket never outlives its session.
func (m *Manager) RegisterResetter(r store.Resetter) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.hooks = append(m.hooks, r)
}

// Login signs in with email/password, exchanges the identity for the server
// account record, and fans out the post-login loads.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (*models.Account, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	identity, err := m.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		m.notifier.Error(auth.MessageFor(err))
		return nil, err
	}

	account, err := m.exchange(ctx, identity)
	if err != nil {
		return nil, err
	}

	m.notifier.Success(fmt.Sprintf("Welcome back, %s!", account.Name))
	m.initAfterLogin(ctx, account)
	return account, nil
}

// Register creates a new identity and account, then signs the user in. A
// verification email is sent best-effort; registration does not fail on it.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	identity, err := m.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		m.notifier.Error(auth.MessageFor(err))
		return nil, err
	}
	identity.DisplayName = req.Name

	account, err := m.exchange(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := m.provider.SendEmailVerification(ctx); err != nil {
		logging.Warn().Err(err).Msg("verification email send failed")
	}

	m.notifier.Success(fmt.Sprintf("Welcome to KeepWatching, %s!", account.Name))
	m.initAfterLogin(ctx, account)
	return account, nil
}

// GoogleLogin exchanges a Google ID token for a session. First-time Google
// identities get a server account created by the same exchange endpoint.
func (m *Manager) GoogleLogin(ctx context.Context, googleIDToken string) (*models.Account, error) {
	identity, err := m.provider.SignInWithGoogle(ctx, googleIDToken)
	if err != nil {
		m.notifier.Error(auth.MessageFor(err))
		return nil, err
	}

	account, err := m.exchange(ctx, identity)
	if err != nil {
		return nil, err
	}

	m.notifier.Success(fmt.Sprintf("Welcome back, %s!", account.Name))
	m.initAfterLogin(ctx, account)
	return account, nil
}

// exchange resolves the provider identity to the server account record,
// creating the account on first sign-in.
func (m *Manager) exchange(ctx context.Context, identity *auth.Identity) (*models.Account, error) {
	body := map[string]string{
		"uid":   identity.UID,
		"email": identity.Email,
		"name":  identity.DisplayName,
	}

	var account models.Account
	if err := m.client.Post(ctx, "/accounts", body, &account); err != nil {
		m.provider.SignOut()
		apiErr := api.AsError(err)
		m.notifier.Error(apiErr.MessageOr("Could not load your account."))
		return nil, err
	}

	m.stores.Account.Set(account)
	return &account, nil
}

// initAfterLogin fans out the account-scoped loads concurrently, then
// activates the default profile. Individual load failures surface through
// each store's error state; a partially initialized session stays signed in.
func (m *Manager) initAfterLogin(ctx context.Context, account *models.Account) {
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := m.stores.Profiles.Fetch(ctx, account.ID); err != nil {
			logging.Warn().Err(err).Msg("post-login profile load failed")
		}
	})
	wg.Go(func() {
		if err := m.stores.Preferences.Fetch(ctx, account.ID); err != nil {
			logging.Warn().Err(err).Msg("post-login preferences load failed")
		}
	})
	wg.Go(func() {
		if err := m.stores.Notifications.Fetch(ctx, account.ID); err != nil {
			logging.Warn().Err(err).Msg("post-login notifications load failed")
		}
	})
	wg.Wait()

	if account.DefaultProfileID != 0 {
		if err := m.SwitchProfile(ctx, account.DefaultProfileID); err != nil {
			logging.Warn().Err(err).Int64("profile_id", account.DefaultProfileID).
				Msg("default profile activation failed")
		}
	}
}

// SwitchProfile activates a profile and reloads its content stores.
func (m *Manager) SwitchProfile(ctx context.Context, profileID int64) error {
	if err := m.stores.ActiveProfile.Activate(ctx, profileID); err != nil {
		return err
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := m.stores.Movies.Fetch(ctx, profileID); err != nil {
			logging.Warn().Err(err).Msg("profile movie load failed")
		}
	})
	wg.Go(func() {
		if err := m.stores.Shows.Fetch(ctx, profileID); err != nil {
			logging.Warn().Err(err).Msg("profile show load failed")
		}
	})
	wg.Wait()
	return nil
}

// UpdateProfile renames a profile and, when it is the active one, patches the
// active-profile view in place so the rename shows up without a refetch.
func (m *Manager) UpdateProfile(ctx context.Context, profileID int64, name string) (*models.Profile, error) {
	account, ok := m.stores.Account.Current()
	if !ok {
		return nil, auth.ErrNotSignedIn
	}

	updated, err := m.stores.Profiles.Update(ctx, account.ID, profileID, name)
	if err != nil {
		return nil, err
	}
	m.stores.ActiveProfile.ApplyProfilePatch(*updated)
	return updated, nil
}

// UpdateProfileImage replaces a profile's image, patching the active-profile
// view the same way.
func (m *Manager) UpdateProfileImage(ctx context.Context, profileID int64, image string) (*models.Profile, error) {
	account, ok := m.stores.Account.Current()
	if !ok {
		return nil, auth.ErrNotSignedIn
	}

	updated, err := m.stores.Profiles.UpdateImage(ctx, account.ID, profileID, image)
	if err != nil {
		return nil, err
	}
	m.stores.ActiveProfile.ApplyProfilePatch(*updated)
	return updated, nil
}

// Logout tears the session down: provider sign-out, best-effort server
// notify, snapshot purge, and a reset of every store. Teardown proceeds even
// when the server call fails.
func (m *Manager) Logout(ctx context.Context) {
	if account, ok := m.stores.Account.Current(); ok {
		if err := m.client.Post(ctx, fmt.Sprintf("/accounts/%d/logout", account.ID), nil, nil); err != nil {
			logging.Warn().Err(err).Msg("server logout notify failed")
		}
	}

	m.provider.SignOut()
	m.teardown()
	m.notifier.Success("You have been signed out.")
}

// DeleteAccount permanently deletes the server account and the provider
// identity, then tears the session down.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	account, ok := m.stores.Account.Current()
	if !ok {
		return auth.ErrNotSignedIn
	}

	if err := m.client.Delete(ctx, fmt.Sprintf("/accounts/%d", account.ID), nil); err != nil {
		apiErr := api.AsError(err)
		m.notifier.Error(apiErr.MessageOr("Could not delete your account."))
		return err
	}
	if err := m.provider.DeleteUser(ctx); err != nil {
		// The server record is gone; log and proceed with teardown.
		logging.Error().Err(err).Msg("identity provider deletion failed after server deletion")
	}

	m.teardown()
	m.notifier.Success("Your account has been deleted.")
	return nil
}

// VerifyEmail asks the provider to mail a verification link.
func (m *Manager) VerifyEmail(ctx context.Context) error {
	if err := m.provider.SendEmailVerification(ctx); err != nil {
		m.notifier.Error(auth.MessageFor(err))
		return err
	}
	m.notifier.Success("Verification email sent. Check your inbox.")
	return nil
}

// ResetPassword asks the provider to mail a password reset link. Works
// without a session.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	req := struct {
		Email string `validate:"required,email"`
	}{Email: email}
	if err := validation.ValidateStruct(req); err != nil {
		return err
	}

	if err := m.provider.SendPasswordReset(ctx, email); err != nil {
		m.notifier.Error(auth.MessageFor(err))
		return err
	}
	m.notifier.Success("Password reset email sent. Check your inbox.")
	return nil
}

// SignedIn reports whether an identity session exists.
func (m *Manager) SignedIn() bool {
	return m.provider.SignedIn()
}

func (m *Manager) teardown() {
	if m.snapshots != nil {
		if err := m.snapshots.Purge(); err != nil {
			logging.Warn().Err(err).Msg("snapshot purge failed")
		}
	}
	for _, resetter := range m.stores.resetters() {
		resetter.Reset()
	}

	// Registered hooks run after the stores so the bridge sees an empty
	// account and parks instead of redialing with the old scope.
	m.hookMu.Lock()
	hooks := make([]store.Resetter, len(m.hooks))
	copy(hooks, m.hooks)
	m.hookMu.Unlock()
	for _, hook := range hooks {
		hook.Reset()
	}

	logging.Info().Msg("session torn down")
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/auth"
	"github.com/tomtom215/keepwatching/internal/cache"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
	"github.com/tomtom215/keepwatching/internal/store"
)

type fakeProvider struct {
	mu        sync.Mutex
	identity  *auth.Identity
	signInErr error

	signOutCalls int
	verifySends  int
	resetSends   int
	deleteCalls  int
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string) (*auth.Identity, error) {
	return f.SignIn(context.Background(), email, "")
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (*auth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.identity = &auth.Identity{UID: "uid-1", Email: email, DisplayName: "Tom"}
	return f.identity, nil
}

func (f *fakeProvider) SignInWithGoogle(_ context.Context, _ string) (*auth.Identity, error) {
	return f.SignIn(context.Background(), "google@example.com", "")
}

func (f *fakeProvider) SignOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = nil
	f.signOutCalls++
}

func (f *fakeProvider) SignedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity != nil
}

func (f *fakeProvider) CurrentIdentity() (*auth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identity == nil {
		return nil, auth.ErrNotSignedIn
	}
	return f.identity, nil
}

func (f *fakeProvider) BearerToken(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.identity == nil {
		return "", nil
	}
	return "test-token", nil
}

func (f *fakeProvider) SendEmailVerification(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifySends++
	return nil
}

func (f *fakeProvider) SendPasswordReset(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetSends++
	return nil
}

func (f *fakeProvider) DeleteUser(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = nil
	f.deleteCalls++
	return nil
}

// fakeDoer serves canned responses keyed by "METHOD path". Unknown paths
// return a 404 error instead of failing the test, since the post-login
// fan-out touches several endpoints a given test may not care about.
type fakeDoer struct {
	mu        sync.Mutex
	responses map[string]any
	calls     map[string]int
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{responses: make(map[string]any), calls: make(map[string]int)}
}

func (f *fakeDoer) respond(method, path string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = value
}

func (f *fakeDoer) callCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

func (f *fakeDoer) serve(method, path string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := method + " " + path
	f.calls[key]++
	value, ok := f.responses[key]
	if !ok {
		return &api.Error{Message: "not found", StatusCode: 404, Structured: true}
	}
	if apiErr, isErr := value.(*api.Error); isErr {
		return apiErr
	}
	if out == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeDoer) Get(_ context.Context, path string, out any) error {
	return f.serve("GET", path, out)
}

func (f *fakeDoer) Post(_ context.Context, path string, _, out any) error {
	return f.serve("POST", path, out)
}

func (f *fakeDoer) Put(_ context.Context, path string, _, out any) error {
	return f.serve("PUT", path, out)
}

func (f *fakeDoer) Delete(_ context.Context, path string, out any) error {
	return f.serve("DELETE", path, out)
}

func newTestManager(t *testing.T, provider auth.Provider, doer api.Doer) (*Manager, Stores, *cache.Store) {
	t.Helper()

	snapshots, err := cache.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory cache: %v", err)
	}
	t.Cleanup(func() { snapshots.Close() })

	notifier := notify.NewNotifier()
	stores := Stores{
		Account:       store.NewAccount(doer, snapshots, notifier),
		Profiles:      store.NewProfiles(doer, snapshots, notifier),
		Movies:        store.NewMovies(doer, notifier),
		Shows:         store.NewShows(doer, notifier),
		ActiveProfile: store.NewActiveProfile(doer, notifier),
		ActiveMovie:   store.NewActiveMovie(doer, notifier),
		Preferences:   store.NewPreferences(doer, snapshots, notifier),
		Notifications: store.NewNotifications(doer, notifier),
	}
	return NewManager(provider, doer, snapshots, notifier, stores), stores, snapshots
}

func TestLoginExchangesAndFansOut(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, _ := newTestManager(t, provider, doer)

	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "Tom", DefaultProfileID: 3})
	doer.respond("GET", "/accounts/7/profiles", []models.Profile{{ID: 3, AccountID: 7, Name: "Main"}})
	doer.respond("GET", "/accounts/7/preferences", models.AccountPreferences{
		Display: models.DisplayPreferences{Theme: "dark"},
	})
	doer.respond("GET", "/accounts/7/notifications", []models.Notification{{ID: 1}})
	doer.respond("GET", "/profiles/3/details", map[string]any{
		"profile": models.Profile{ID: 3, Name: "Main"},
	})
	doer.respond("GET", "/profiles/3/movies", []models.Movie{{ID: 1, Title: "Heat"}})
	doer.respond("GET", "/profiles/3/shows", []models.Show{{ID: 5, Title: "Severance"}})

	account, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if account.ID != 7 {
		t.Fatalf("account ID = %d, want 7", account.ID)
	}

	if got, ok := stores.Account.Current(); !ok || got.ID != 7 {
		t.Error("account store not populated")
	}
	if len(stores.Profiles.All()) != 1 {
		t.Error("profiles not loaded post-login")
	}
	if stores.Preferences.Current().Display.Theme != "dark" {
		t.Error("preferences not loaded post-login")
	}
	if len(stores.Notifications.All()) != 1 {
		t.Error("notifications not loaded post-login")
	}
	if id, ok := stores.ActiveProfile.CurrentID(); !ok || id != 3 {
		t.Error("default profile not activated")
	}
	if len(stores.Movies.All()) != 1 || len(stores.Shows.All()) != 1 {
		t.Error("content stores not loaded for default profile")
	}
}

func TestLoginValidationRejectsBeforeProvider(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, _ := newTestManager(t, provider, newFakeDoer())

	_, err := manager.Login(context.Background(), LoginRequest{Email: "not-an-email", Password: "short"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if provider.SignedIn() {
		t.Error("provider was reached despite invalid request")
	}
}

func TestRegisterNameBounds(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, _, _ := newTestManager(t, provider, doer)

	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "J"})
	if _, err := manager.Register(context.Background(), RegisterRequest{
		Name:     "J",
		Email:    "j@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Register with one-character name: %v", err)
	}
	manager.Logout(context.Background())

	long := strings.Repeat("n", 51)
	if _, err := manager.Register(context.Background(), RegisterRequest{
		Name:     long,
		Email:    "long@example.com",
		Password: "hunter2hunter2",
	}); err == nil {
		t.Fatal("expected validation error for 51-character name")
	}
	if provider.SignedIn() {
		t.Error("provider was reached despite over-long name")
	}
}

func TestLoginExchangeFailureSignsOut(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, _ := newTestManager(t, provider, doer)

	doer.respond("POST", "/accounts", &api.Error{Message: "server down", StatusCode: 503, Structured: true})

	_, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	})
	if err == nil {
		t.Fatal("expected exchange error")
	}
	if provider.SignedIn() {
		t.Error("provider session survived a failed exchange")
	}
	if _, ok := stores.Account.Current(); ok {
		t.Error("account store populated despite failed exchange")
	}
}

func TestLoginPartialInitStaysSignedIn(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, _ := newTestManager(t, provider, doer)

	// Account exchange succeeds; none of the fan-out endpoints exist.
	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "Tom", DefaultProfileID: 3})

	account, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if account == nil || !manager.SignedIn() {
		t.Fatal("partial init tore the session down")
	}
	if stores.Profiles.Err() == nil {
		t.Error("failed profile load left no error state")
	}
}

func TestLogoutPurgesAndResets(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, snapshots := newTestManager(t, provider, doer)

	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "Tom"})
	doer.respond("POST", "/accounts/7/logout", nil)
	if _, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	manager.Logout(context.Background())

	if manager.SignedIn() {
		t.Error("still signed in after logout")
	}
	if doer.callCount("POST", "/accounts/7/logout") != 1 {
		t.Error("server logout notify not sent")
	}
	if _, ok := stores.Account.Current(); ok {
		t.Error("account store not reset")
	}
	var cached models.Account
	if err := snapshots.Get(cache.KeyAccount, &cached); !errors.Is(err, cache.ErrSnapshotNotFound) {
		t.Errorf("cache get after logout = %v, want ErrSnapshotNotFound", err)
	}
}

// trackingResetter records how often teardown invoked it and whether the
// account store had already been cleared at that point.
type trackingResetter struct {
	account      *store.Account
	calls        int
	sawLiveScope bool
}

func (r *trackingResetter) Reset() {
	r.calls++
	if _, ok := r.account.Current(); ok {
		r.sawLiveScope = true
	}
}

func TestUpdateProfilePatchesActiveView(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, _ := newTestManager(t, provider, doer)

	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "Tom"})
	doer.respond("GET", "/profiles/3/details", map[string]any{
		"profile": models.Profile{ID: 3, AccountID: 7, Name: "Kids"},
	})
	if _, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := manager.SwitchProfile(context.Background(), 3); err != nil {
		t.Fatalf("SwitchProfile: %v", err)
	}

	doer.respond("PUT", "/accounts/7/profiles/3", models.Profile{ID: 3, AccountID: 7, Name: "Family"})
	updated, err := manager.UpdateProfile(context.Background(), 3, "Family")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Family" {
		t.Errorf("updated name = %q, want %q", updated.Name, "Family")
	}
	active := stores.ActiveProfile.Current()
	if active == nil || active.Name != "Family" {
		t.Errorf("active profile = %+v, want name %q", active, "Family")
	}

	// Renaming a profile other than the active one leaves the view alone.
	doer.respond("PUT", "/accounts/7/profiles/4", models.Profile{ID: 4, AccountID: 7, Name: "Guest"})
	if _, err := manager.UpdateProfile(context.Background(), 4, "Guest"); err != nil {
		t.Fatalf("UpdateProfile(4): %v", err)
	}
	if active := stores.ActiveProfile.Current(); active == nil || active.ID != 3 {
		t.Errorf("active profile changed by rename of another profile: %+v", active)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	manager, _, _ := newTestManager(t, &fakeProvider{}, newFakeDoer())
	if _, err := manager.UpdateProfile(context.Background(), 3, "Family"); !errors.Is(err, auth.ErrNotSignedIn) {
		t.Errorf("UpdateProfile signed out = %v, want ErrNotSignedIn", err)
	}
}

func TestLogoutRunsRegisteredResetters(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, _ := newTestManager(t, provider, doer)

	hook := &trackingResetter{account: stores.Account}
	manager.RegisterResetter(hook)

	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "Tom"})
	doer.respond("POST", "/accounts/7/logout", nil)
	if _, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	manager.Logout(context.Background())

	if hook.calls != 1 {
		t.Errorf("hook calls = %d, want 1", hook.calls)
	}
	if hook.sawLiveScope {
		t.Error("hook ran before the account store was reset")
	}
}

func TestDeleteAccountRemovesServerAndProvider(t *testing.T) {
	provider := &fakeProvider{}
	doer := newFakeDoer()
	manager, stores, _ := newTestManager(t, provider, doer)

	doer.respond("POST", "/accounts", models.Account{ID: 7, Name: "Tom"})
	doer.respond("DELETE", "/accounts/7", nil)
	if _, err := manager.Login(context.Background(), LoginRequest{
		Email:    "tom@example.com",
		Password: "hunter2hunter2",
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := manager.DeleteAccount(context.Background()); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if provider.deleteCalls != 1 {
		t.Error("provider identity not deleted")
	}
	if _, ok := stores.Account.Current(); ok {
		t.Error("account store not reset after deletion")
	}
}

func TestResetPasswordValidatesEmail(t *testing.T) {
	provider := &fakeProvider{}
	manager, _, _ := newTestManager(t, provider, newFakeDoer())

	if err := manager.ResetPassword(context.Background(), "not-an-email"); err == nil {
		t.Fatal("expected validation error")
	}
	if provider.resetSends != 0 {
		t.Error("provider was reached despite invalid email")
	}

	if err := manager.ResetPassword(context.Background(), "tom@example.com"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if provider.resetSends != 1 {
		t.Error("reset email not requested")
	}
}

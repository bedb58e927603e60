// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/config"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
	"github.com/tomtom215/keepwatching/internal/store"
)

type staticTokens struct{ token string }

func (s staticTokens) BearerToken(context.Context) (string, error) { return s.token, nil }

// nullDoer satisfies api.Doer for stores whose fetch paths a test never hits.
type nullDoer struct{}

func (nullDoer) Get(context.Context, string, any) error       { return errors.New("no network") }
func (nullDoer) Post(context.Context, string, any, any) error { return errors.New("no network") }
func (nullDoer) Put(context.Context, string, any, any) error  { return errors.New("no network") }
func (nullDoer) Delete(context.Context, string, any) error    { return errors.New("no network") }

func newTestStores() Stores {
	notifier := notify.NewNotifier()
	doer := nullDoer{}
	return Stores{
		Account:       store.NewAccount(doer, nil, notifier),
		Movies:        store.NewMovies(doer, notifier),
		Shows:         store.NewShows(doer, notifier),
		ActiveProfile: store.NewActiveProfile(doer, notifier),
		ActiveMovie:   store.NewActiveMovie(doer, notifier),
		Notifications: store.NewNotifications(doer, notifier),
	}
}

func socketConfig(url string) config.SocketConfig {
	return config.SocketConfig{
		URL:               url,
		ReconnectAttempts: 2,
		ReconnectDelay:    10 * time.Millisecond,
		PingInterval:      50 * time.Millisecond,
	}
}

func TestDispatchRoutesIncrementalEvents(t *testing.T) {
	stores := newTestStores()
	bridge := NewBridge(socketConfig("ws://unused"), staticTokens{"t"}, notify.NewNotifier(), stores)

	moviePayload, _ := json.Marshal(models.Movie{ID: 9, Title: "Dune", WatchStatus: models.WatchStatusNotWatched})
	bridge.dispatch(context.Background(), models.RealtimeEvent{
		Event:   models.EventMovieFavoriteAdded,
		Payload: moviePayload,
	})
	if _, ok := stores.Movies.ByID(9); !ok {
		t.Error("movie favorite event not applied")
	}

	showPayload, _ := json.Marshal(models.Show{ID: 5, Title: "Severance"})
	bridge.dispatch(context.Background(), models.RealtimeEvent{
		Event:   models.EventShowFavoriteAdded,
		Payload: showPayload,
	})
	if _, ok := stores.Shows.ByID(5); !ok {
		t.Error("show favorite event not applied")
	}

	statusPayload, _ := json.Marshal(models.MovieStatusPayload{MovieID: 9, WatchStatus: models.WatchStatusWatched})
	bridge.dispatch(context.Background(), models.RealtimeEvent{
		Event:   models.EventMovieStatusUpdate,
		Payload: statusPayload,
	})
	movie, _ := stores.Movies.ByID(9)
	if movie.WatchStatus != models.WatchStatusWatched {
		t.Error("movie status event not applied to collection")
	}

	notifPayload, _ := json.Marshal([]models.Notification{{ID: 1, Title: "New season"}})
	bridge.dispatch(context.Background(), models.RealtimeEvent{
		Event:   models.EventNotificationsUpdate,
		Payload: notifPayload,
	})
	if len(stores.Notifications.All()) != 1 {
		t.Error("notifications event not applied")
	}
}

func TestDispatchIgnoresUnknownAndMalformed(t *testing.T) {
	stores := newTestStores()
	bridge := NewBridge(socketConfig("ws://unused"), staticTokens{"t"}, notify.NewNotifier(), stores)

	bridge.dispatch(context.Background(), models.RealtimeEvent{Event: "future_event"})
	bridge.dispatch(context.Background(), models.RealtimeEvent{
		Event:   models.EventMovieFavoriteAdded,
		Payload: json.RawMessage(`{not json`),
	})

	if len(stores.Movies.All()) != 0 {
		t.Error("malformed payload mutated the store")
	}
}

func TestServeReadsEventsFromServer(t *testing.T) {
	var (
		mu         sync.Mutex
		gotToken   string
		gotAccount string
	)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotToken = r.URL.Query().Get("token")
		gotAccount = r.URL.Query().Get("account_id")
		mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		payload, _ := json.Marshal(models.Movie{ID: 9, Title: "Dune"})
		event, _ := json.Marshal(models.RealtimeEvent{
			Event:   models.EventMovieFavoriteAdded,
			Payload: payload,
		})
		conn.WriteMessage(websocket.TextMessage, event)

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	stores := newTestStores()
	stores.Account.Set(models.Account{ID: 7, Name: "Tom"})

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	bridge := NewBridge(socketConfig(wsURL), staticTokens{"test-token"}, notify.NewNotifier(), stores)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := stores.Movies.ByID(9); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pushed movie never reached the store")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	if gotToken != "test-token" {
		t.Errorf("token query = %q, want %q", gotToken, "test-token")
	}
	if gotAccount != "7" {
		t.Errorf("account_id query = %q, want %q", gotAccount, "7")
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop on cancel")
	}
}

func TestResetClosesConnectionOnSignOut(t *testing.T) {
	serverSawClose := make(chan struct{})
	dials := make(chan string, 8)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials <- r.URL.Query().Get("account_id")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case <-serverSawClose:
				default:
					close(serverSawClose)
				}
				return
			}
		}
	}))
	defer server.Close()

	stores := newTestStores()
	stores.Account.Set(models.Account{ID: 7})

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	bridge := NewBridge(socketConfig(wsURL), staticTokens{"t"}, notify.NewNotifier(), stores)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- bridge.Serve(ctx) }()

	select {
	case <-dials:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never dialed")
	}
	waitFor(t, 2*time.Second, bridge.Connected, "bridge never connected")

	// Sign-out order: account store resets first, then the bridge hook.
	stores.Account.Reset()
	bridge.Reset()

	select {
	case <-serverSawClose:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection close")
	}
	waitFor(t, 2*time.Second, func() bool { return !bridge.Connected() }, "bridge still connected after sign-out")

	// With no account the bridge must park, not redial with the old scope.
	select {
	case account := <-dials:
		t.Fatalf("bridge redialed after sign-out with account_id %q", account)
	case <-time.After(200 * time.Millisecond):
	}

	// A new sign-in reconnects under the new account's scope.
	stores.Account.Set(models.Account{ID: 8})
	select {
	case account := <-dials:
		if account != "8" {
			t.Errorf("redial account_id = %q, want %q", account, "8")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bridge did not reconnect for the new session")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop on cancel")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestServeExhaustsReconnectBudget(t *testing.T) {
	stores := newTestStores()
	stores.Account.Set(models.Account{ID: 7})

	notifier := notify.NewNotifier()
	// Nothing listens on this address.
	bridge := NewBridge(socketConfig("ws://127.0.0.1:1"), staticTokens{"t"}, notifier, stores)

	err := bridge.Serve(context.Background())
	if !errors.Is(err, ErrReconnectExhausted) {
		t.Fatalf("Serve returned %v, want ErrReconnectExhausted", err)
	}

	recent := notifier.Recent()
	if len(recent) == 0 || recent[len(recent)-1].Severity != notify.SeverityError {
		t.Error("exhaustion did not surface an error notification")
	}
}

var _ api.TokenSource = staticTokens{}

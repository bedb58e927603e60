// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package realtime maintains the websocket connection to the API server and
// routes pushed events into the entity stores.
//
// Bulk update events (shows_update, movies_update, episodes_update) carry no
// payload; they schedule a refetch of the affected store, coalesced through a
// rate limiter so event bursts collapse into one request. Incremental events
// (favorite added, movie status) carry the record and patch stores in place
// without a round trip.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/config"
	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/metrics"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
	"github.com/tomtom215/keepwatching/internal/store"
)

// ErrReconnectExhausted is returned when the bounded reconnect budget runs
// out without a successful connection.
var ErrReconnectExhausted = errors.New("realtime: reconnect attempts exhausted")

// writeWait bounds blocking writes (pings, close frames).
const writeWait = 10 * time.Second

// refetchEvery coalesces bulk-update refetches; a burst of update events for
// the same store collapses into at most one fetch per window.
const refetchEvery = 2 * time.Second

// Stores are the store surfaces the bridge routes events into.
type Stores struct {
	Account       *store.Account
	Movies        *store.Movies
	Shows         *store.Shows
	ActiveProfile *store.ActiveProfile
	ActiveMovie   *store.ActiveMovie
	Notifications *store.Notifications
}

// Bridge is the realtime update client. Run connects, reads events until the
// connection drops, and reconnects a bounded number of times with a fixed
// delay between attempts. The attempt counter resets after any successful
// connection, so the bound applies to consecutive failures only.
type Bridge struct {
	cfg      config.SocketConfig
	tokens   api.TokenSource
	notifier *notify.Notifier
	stores   Stores

	moviesLimiter   *rate.Limiter
	showsLimiter    *rate.Limiter
	episodesLimiter *rate.Limiter

	dialer    *websocket.Dialer
	connected atomic.Bool

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewBridge creates a realtime bridge.
func NewBridge(cfg config.SocketConfig, tokens api.TokenSource, notifier *notify.Notifier, stores Stores) *Bridge {
	return &Bridge{
		cfg:             cfg,
		tokens:          tokens,
		notifier:        notifier,
		stores:          stores,
		moviesLimiter:   rate.NewLimiter(rate.Every(refetchEvery), 1),
		showsLimiter:    rate.NewLimiter(rate.Every(refetchEvery), 1),
		episodesLimiter: rate.NewLimiter(rate.Every(refetchEvery), 1),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
}

// Serve implements suture.Service. It waits for a signed-in session, then
// runs the connect/read/reconnect loop until the context is canceled or the
// reconnect budget is exhausted. The account scope is re-resolved before
// every dial, so a sign-out followed by a different account's sign-in
// reconnects under the new scope.
func (b *Bridge) Serve(ctx context.Context) error {
	attempts := 0
	for {
		accountID, err := b.waitForAccount(ctx)
		if err != nil {
			return err
		}

		conn, err := b.dial(ctx, accountID)
		if err != nil {
			attempts++
			metrics.RealtimeReconnectAttempts.Inc()
			if attempts > b.cfg.ReconnectAttempts {
				b.notifier.Error("Live updates are unavailable. Changes from other devices will not appear until restart.")
				logging.Error().Err(err).Int("attempts", attempts-1).Msg("realtime reconnect budget exhausted")
				return ErrReconnectExhausted
			}
			logging.Warn().Err(err).Int("attempt", attempts).Msg("realtime connect failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.cfg.ReconnectDelay):
			}
			continue
		}

		metrics.RealtimeConnects.Inc()
		logging.Info().Str("url", b.cfg.URL).Msg("realtime connected")
		attempts = 0
		b.setConn(conn)
		b.connected.Store(true)

		err = b.readLoop(ctx, conn)
		b.connected.Store(false)
		b.setConn(nil)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn().Err(err).Msg("realtime connection lost")
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (b *Bridge) String() string {
	return "realtime-bridge"
}

// Connected reports whether the bridge currently holds an open connection.
func (b *Bridge) Connected() bool {
	return b.connected.Load()
}

func (b *Bridge) setConn(conn *websocket.Conn) {
	b.connMu.Lock()
	b.conn = conn
	b.connMu.Unlock()
}

// Reset is the session coordinator's teardown hook. Closing the active
// connection fails the read loop; Serve then blocks waiting for the next
// signed-in session instead of reconnecting with the old account's scope.
// Safe to call with no connection open.
func (b *Bridge) Reset() {
	b.connMu.Lock()
	conn := b.conn
	b.conn = nil
	b.connMu.Unlock()

	if conn != nil {
		logging.Info().Msg("realtime connection closed for sign-out")
		conn.Close()
	}
}

// waitForAccount blocks until the account store has a signed-in account.
func (b *Bridge) waitForAccount(ctx context.Context) (int64, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if account, ok := b.stores.Account.Current(); ok {
			return account.ID, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// dial opens the websocket with a fresh bearer token and the account scope
// in the query string.
func (b *Bridge) dial(ctx context.Context, accountID int64) (*websocket.Conn, error) {
	token, err := b.tokens.BearerToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("realtime token: %w", err)
	}

	u, err := url.Parse(b.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("account_id", fmt.Sprintf("%d", accountID))
	u.RawQuery = q.Encode()

	conn, resp, err := b.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("realtime dial: %w", err)
	}
	return conn, nil
}

// readLoop reads and dispatches events until the connection errors. A ping
// goroutine keeps the connection alive; pongs extend the read deadline.
func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) error {
	readWait := b.cfg.PingInterval + writeWait
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go b.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		var event models.RealtimeEvent
		if err := json.Unmarshal(data, &event); err != nil {
			logging.Warn().Err(err).Msg("realtime event decode failed")
			continue
		}
		b.dispatch(ctx, event)
	}
}

func (b *Bridge) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(b.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// dispatch routes one event into the stores. Unknown event names log and
// drop; a new server event must never take the client down.
func (b *Bridge) dispatch(ctx context.Context, event models.RealtimeEvent) {
	metrics.RealtimeEvents.WithLabelValues(event.Event).Inc()
	logging.Debug().Str("event", event.Event).Msg("realtime event")

	switch event.Event {
	case models.EventShowsUpdate:
		b.refetchShows(ctx)
	case models.EventMoviesUpdate:
		b.refetchMovies(ctx)
	case models.EventEpisodesUpdate:
		if b.episodesLimiter.Allow() {
			if err := b.stores.ActiveProfile.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("episode refetch failed")
			}
		}
	case models.EventShowFavoriteAdded:
		var show models.Show
		if err := json.Unmarshal(event.Payload, &show); err != nil {
			logging.Warn().Err(err).Msg("show favorite payload decode failed")
			return
		}
		b.stores.Shows.Upsert(show)
		// A new favorite changes the episode rails; refresh the bundle.
		if b.episodesLimiter.Allow() {
			if err := b.stores.ActiveProfile.Refresh(ctx); err != nil {
				logging.Warn().Err(err).Msg("episode refetch failed")
			}
		}
	case models.EventMovieFavoriteAdded:
		var movie models.Movie
		if err := json.Unmarshal(event.Payload, &movie); err != nil {
			logging.Warn().Err(err).Msg("movie favorite payload decode failed")
			return
		}
		b.stores.Movies.Upsert(movie)
	case models.EventMovieStatusUpdate:
		var payload models.MovieStatusPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			logging.Warn().Err(err).Msg("movie status payload decode failed")
			return
		}
		b.stores.Movies.ApplyWatchStatus(payload.MovieID, payload.WatchStatus)
		b.stores.ActiveMovie.ApplyWatchStatus(payload.MovieID, payload.WatchStatus)
	case models.EventNotificationsUpdate:
		// The server usually includes the full list; an empty payload means
		// "something changed, refetch".
		if len(event.Payload) == 0 {
			b.refetchNotifications(ctx)
			return
		}
		var items []models.Notification
		if err := json.Unmarshal(event.Payload, &items); err != nil {
			logging.Warn().Err(err).Msg("notifications payload decode failed")
			return
		}
		b.stores.Notifications.Replace(items)
	default:
		logging.Debug().Str("event", event.Event).Msg("unhandled realtime event")
	}
}

func (b *Bridge) refetchShows(ctx context.Context) {
	if !b.showsLimiter.Allow() {
		return
	}
	profileID, ok := b.stores.ActiveProfile.CurrentID()
	if !ok {
		return
	}
	if err := b.stores.Shows.Fetch(ctx, profileID); err != nil {
		logging.Warn().Err(err).Msg("show refetch failed")
	}
}

func (b *Bridge) refetchNotifications(ctx context.Context) {
	account, ok := b.stores.Account.Current()
	if !ok {
		return
	}
	if err := b.stores.Notifications.Fetch(ctx, account.ID); err != nil {
		logging.Warn().Err(err).Msg("notification refetch failed")
	}
}

func (b *Bridge) refetchMovies(ctx context.Context) {
	if !b.moviesLimiter.Allow() {
		return
	}
	profileID, ok := b.stores.ActiveProfile.CurrentID()
	if !ok {
		return
	}
	if err := b.stores.Movies.Fetch(ctx, profileID); err != nil {
		logging.Warn().Err(err).Msg("movie refetch failed")
	}
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package store holds the client's entity state: one store per slice of
// server data (account, profiles, movies, shows, preferences, notifications,
// active profile, active movie).
//
// Every store follows the same contract:
//
//   - All state sits behind a sync.RWMutex; mutation is serialized.
//   - Each async operation moves idle → pending → fulfilled/rejected:
//     Loading() is true while a fetch is in flight, Err() carries the last
//     failure and is cleared by the next success.
//   - Fetch failures leave prior data untouched (stale-while-revalidate);
//     mutations change state only after the server confirms.
//   - Fetches carry a generation counter: a response belonging to a
//     superseded fetch is dropped instead of clobbering newer data.
//   - Derived filter values are computed at read time behind a dirty-flag
//     memo, uniformly across stores.
//   - Designated outcomes publish transient activity notifications.
//   - Reset() returns the store to its initial empty state and clears its
//     snapshot cache key; the session coordinator calls it on logout and
//     account deletion so no entity outlives its owning session.
package store

import (
	"sync"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/metrics"
)

// Resetter is the capability the session coordinator uses to tear down
// registered stores on logout and account deletion.
type Resetter interface {
	Reset()
}

// asyncState is the shared idle/pending/fulfilled/rejected bookkeeping
// embedded in every store. Access is guarded by the owning store's mutex.
type asyncState struct {
	loading bool
	err     *api.Error
	gen     uint64
}

// begin marks a new fetch generation and returns its token. Any response
// carrying an older token is stale and must be dropped.
func (s *asyncState) begin() uint64 {
	s.gen++
	s.loading = true
	return s.gen
}

// current reports whether the given generation token is still the latest.
func (s *asyncState) current(gen uint64) bool {
	return gen == s.gen
}

// fulfill records a successful completion.
func (s *asyncState) fulfill() {
	s.loading = false
	s.err = nil
}

// reject records a failed completion without touching data.
func (s *asyncState) reject(err error) *api.Error {
	s.loading = false
	s.err = api.AsError(err)
	return s.err
}

// reset returns the bookkeeping to idle. The generation survives so that
// in-flight responses from before the reset are still recognized as stale.
func (s *asyncState) reset() {
	s.loading = false
	s.err = nil
	s.gen++
}

// recordOp feeds the store operation metric.
func recordOp(store, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.StoreOperations.WithLabelValues(store, operation, outcome).Inc()
}

// readState snapshots loading/error under the caller's lock discipline.
type stateReader struct {
	mu    *sync.RWMutex
	state *asyncState
}

func (r stateReader) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.loading
}

func (r stateReader) Err() *api.Error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.err
}

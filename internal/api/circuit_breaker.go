// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package api

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/metrics"
)

// BreakerClient wraps a Doer with a circuit breaker so a struggling server
// fails fast instead of stacking up 30-second timeouts.
//
// The breaker times transitions with real time (via sony/gobreaker); tests
// should exercise the wrapped Doer directly rather than waiting out breaker
// windows.
type BreakerClient struct {
	inner Doer
	cb    *gobreaker.CircuitBreaker[struct{}]
	name  string
}

// Ensure BreakerClient implements Doer.
var _ Doer = (*BreakerClient)(nil)

// NewBreakerClient wraps inner in a circuit breaker.
// Configuration:
//   - opens at >= 60% failures over a minimum of 10 requests
//   - counts reset after 1 minute in the closed state
//   - 2 minutes open before probing with up to 3 half-open requests
func NewBreakerClient(inner Doer) *BreakerClient {
	const cbName = "keepwatching-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &BreakerClient{inner: inner, cb: cb, name: cbName}
}

// Get implements Doer.
func (b *BreakerClient) Get(ctx context.Context, path string, out any) error {
	return b.execute(func() error { return b.inner.Get(ctx, path, out) })
}

// Post implements Doer.
func (b *BreakerClient) Post(ctx context.Context, path string, body, out any) error {
	return b.execute(func() error { return b.inner.Post(ctx, path, body, out) })
}

// Put implements Doer.
func (b *BreakerClient) Put(ctx context.Context, path string, body, out any) error {
	return b.execute(func() error { return b.inner.Put(ctx, path, body, out) })
}

// Delete implements Doer.
func (b *BreakerClient) Delete(ctx context.Context, path string, out any) error {
	return b.execute(func() error { return b.inner.Delete(ctx, path, out) })
}

func (b *BreakerClient) execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", b.name).Msg("request rejected by circuit breaker")
		return &Error{Message: "server temporarily unavailable, request rejected"}
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		return err
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

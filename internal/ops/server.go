// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package ops serves the daemon's local operational endpoints: health,
// Prometheus metrics, session status and recent activity. It binds to
// loopback by default and carries no authentication; it is not the product
// API, which lives on the remote server.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/keepwatching/internal/config"
	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/notify"
)

// ConnectionReporter exposes the realtime bridge's connectivity.
type ConnectionReporter interface {
	Connected() bool
}

// SessionReporter exposes the session coordinator's sign-in state.
// Satisfied by *session.Manager.
type SessionReporter interface {
	SignedIn() bool
}

// Server is the local ops HTTP server.
type Server struct {
	http     *http.Server
	manager  SessionReporter
	notifier *notify.Notifier
	bridge   ConnectionReporter
	started  time.Time
}

// NewServer builds the ops server from config.
func NewServer(cfg config.OpsConfig, manager SessionReporter, notifier *notify.Notifier, bridge ConnectionReporter) *Server {
	s := &Server{
		manager:  manager,
		notifier: notifier,
		bridge:   bridge,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/activity", s.handleActivity)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe starts the server. Blocks until shutdown or failure.
func (s *Server) ListenAndServe() error {
	logging.Info().Str("addr", s.http.Addr).Msg("ops server listening")
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"signed_in":          s.manager.SignedIn(),
		"realtime_connected": s.bridge.Connected(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"signed_in":          s.manager.SignedIn(),
		"realtime_connected": s.bridge.Connected(),
		"uptime_seconds":     int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.notifier.Recent())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("ops response encode failed")
	}
}

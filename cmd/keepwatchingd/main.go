// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package main is the entry point for keepwatchingd, the KeepWatching client
// daemon.
//
// The daemon signs in against the identity provider, mirrors the account's
// media-tracking state (profiles, favorited shows and movies, preferences,
// notifications) from the KeepWatching API into local stores, and keeps that
// state live over the server's websocket. A loopback HTTP endpoint exposes
// health, session status, recent activity and Prometheus metrics.
//
// # Startup order
//
//  1. Configuration: defaults, optional YAML file, KW_-prefixed environment
//     variables (Koanf v2)
//  2. Logging: zerolog, console or JSON
//  3. Snapshot cache: BadgerDB, seeds stores for fast first reads
//  4. Clients: identity provider client and API adapter (optional circuit
//     breaker)
//  5. Stores and session coordinator
//  6. Supervision tree: realtime bridge and ops endpoint under suture
//
// # Sign-in
//
// Credentials come from KW_LOGIN_EMAIL and KW_LOGIN_PASSWORD. Without them
// the daemon starts signed out; the realtime bridge waits until a session
// exists.
//
// # Signal handling
//
// SIGINT and SIGTERM trigger a graceful stop: the supervision tree winds
// down its services (10s timeout), then the snapshot cache closes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/auth"
	"github.com/tomtom215/keepwatching/internal/cache"
	"github.com/tomtom215/keepwatching/internal/config"
	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/notify"
	"github.com/tomtom215/keepwatching/internal/ops"
	"github.com/tomtom215/keepwatching/internal/realtime"
	"github.com/tomtom215/keepwatching/internal/session"
	"github.com/tomtom215/keepwatching/internal/store"
	"github.com/tomtom215/keepwatching/internal/supervisor"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: search standard locations)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	logging.Info().
		Str("api_url", cfg.API.BaseURL).
		Str("socket_url", cfg.Socket.URL).
		Bool("circuit_breaker", cfg.API.CircuitBreaker).
		Msg("Starting keepwatchingd")

	snapshots, err := openCache(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open snapshot cache")
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing snapshot cache")
		}
	}()

	provider := auth.NewClient(cfg.Auth.BaseURL, cfg.Auth.APIKey)

	var client api.Doer = api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, provider)
	if cfg.API.CircuitBreaker {
		client = api.NewBreakerClient(client)
	}

	notifier := notify.NewNotifier()
	stores := session.Stores{
		Account:       store.NewAccount(client, snapshots, notifier),
		Profiles:      store.NewProfiles(client, snapshots, notifier),
		Movies:        store.NewMovies(client, notifier),
		Shows:         store.NewShows(client, notifier),
		ActiveProfile: store.NewActiveProfile(client, notifier),
		ActiveMovie:   store.NewActiveMovie(client, notifier),
		Preferences:   store.NewPreferences(client, snapshots, notifier),
		Notifications: store.NewNotifications(client, notifier),
	}
	manager := session.NewManager(provider, client, snapshots, notifier, stores)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogger := slog.New(logging.NewSlogHandler())
	tree, err := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervision tree")
	}

	bridge := realtime.NewBridge(cfg.Socket, provider, notifier, realtime.Stores{
		Account:       stores.Account,
		Movies:        stores.Movies,
		Shows:         stores.Shows,
		ActiveProfile: stores.ActiveProfile,
		ActiveMovie:   stores.ActiveMovie,
		Notifications: stores.Notifications,
	})
	tree.AddRealtimeService(bridge)
	manager.RegisterResetter(bridge)

	if cfg.Ops.Enabled {
		opsServer := ops.NewServer(cfg.Ops, manager, notifier, bridge)
		tree.AddOpsService(supervisor.NewHTTPService("ops-server", opsServer, 10*time.Second))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	// Sign in once the tree is up; a failed login leaves the daemon running
	// signed out so a later restart of the bridge can pick up a session.
	if email := os.Getenv("KW_LOGIN_EMAIL"); email != "" {
		go func() {
			_, err := manager.Login(ctx, session.LoginRequest{
				Email:    email,
				Password: os.Getenv("KW_LOGIN_PASSWORD"),
			})
			if err != nil {
				logging.Error().Err(err).Msg("Sign-in failed")
			}
		}()
	} else {
		logging.Info().Msg("No credentials configured (KW_LOGIN_EMAIL); starting signed out")
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		reportUnstopped(tree)
		logging.Fatal().Err(err).Msg("Supervision tree failed")
	}

	reportUnstopped(tree)
	logging.Info().Msg("keepwatchingd stopped")
}

func openCache(cfg *config.Config) (*cache.Store, error) {
	if cfg.Cache.InMemory {
		return cache.OpenInMemory()
	}
	if err := os.MkdirAll(cfg.Cache.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return cache.Open(cfg.Cache.Dir)
}

func reportUnstopped(tree *supervisor.Tree) {
	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil || len(unstopped) == 0 {
		return
	}
	for _, svc := range unstopped {
		logging.Warn().Str("service", fmt.Sprintf("%v", svc.Service)).Msg("Service did not stop in time")
	}
}

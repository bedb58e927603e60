// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package supervisor builds the daemon's suture supervision tree.
//
// The tree has two layers under the root: the realtime layer runs the
// websocket bridge, the ops layer runs the local HTTP endpoint. The split
// isolates failures: a crashing bridge restarts without taking the ops
// endpoint down, and vice versa.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the daemon's supervision hierarchy.
type Tree struct {
	root     *suture.Supervisor
	realtime *suture.Supervisor
	ops      *suture.Supervisor
	logger   *slog.Logger
	config   TreeConfig
}

// NewTree creates the supervision tree with the given configuration.
func NewTree(logger *slog.Logger, config TreeConfig) (*Tree, error) {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// sutureslog's hook constructor has a pointer receiver; the Handler
	// literal must be addressed before MustHook.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("keepwatching", rootSpec)
	realtime := suture.New("realtime-layer", childSpec)
	ops := suture.New("ops-layer", childSpec)

	root.Add(realtime)
	root.Add(ops)

	return &Tree{
		root:     root,
		realtime: realtime,
		ops:      ops,
		logger:   logger,
		config:   config,
	}, nil
}

// AddRealtimeService adds a service to the realtime layer.
func (t *Tree) AddRealtimeService(svc suture.Service) suture.ServiceToken {
	return t.realtime.Add(svc)
}

// AddOpsService adds a service to the ops layer.
func (t *Tree) AddOpsService(svc suture.Service) suture.ServiceToken {
	return t.ops.Add(svc)
}

// Serve starts the tree and blocks until the context is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine. The returned
// channel receives the terminal error (or nil) when the tree stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that failed to stop within the
// shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Remove stops and removes a service by token.
func (t *Tree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}

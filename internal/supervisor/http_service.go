// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer matches the lifecycle surface of *http.Server and of
// ops.Server. The indirection keeps tests free of real listeners.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts an HTTP server's blocking ListenAndServe to suture's
// context-aware Serve: the listener runs in a goroutine, and context
// cancellation triggers a graceful Shutdown with a bounded timeout.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPService wraps an HTTP server as a supervised service.
func NewHTTPService(name string, server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            name,
	}
}

// Serve implements suture.Service. http.ErrServerClosed is expected on
// shutdown and converted to nil.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", h.name, err)
		}
		return nil

	case <-ctx.Done():
		// The original context is canceled; shutdown needs its own.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown failed: %w", h.name, err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (h *HTTPService) String() string {
	return h.name
}

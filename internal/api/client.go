// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package api implements the REST client adapter for the KeepWatching server.
//
// The adapter resolves relative paths against the configured base URL,
// attaches a freshly fetched bearer token on every request when a signed-in
// session exists, and normalizes every failure into *Error. It performs no
// retries and no rate limiting; recovery policy belongs to callers.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/keepwatching/internal/logging"
	"github.com/tomtom215/keepwatching/internal/metrics"
)

// TokenSource supplies bearer tokens for outgoing requests.
//
// BearerToken returns the current session's token, fetched fresh (refreshing
// if near expiry). An empty token with a nil error means no session is signed
// in; the request proceeds unauthenticated.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, error)
}

// Doer is the adapter contract stores depend on. Both Client and
// BreakerClient implement it.
type Doer interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Ensure Client implements Doer.
var _ Doer = (*Client)(nil)

// Client is the concrete REST adapter.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a REST adapter for the given API root.
// tokens may be nil for a client that never authenticates (tests).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Get issues a GET request and decodes the response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body (may be nil) and decodes the
// response into out (may be nil).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request and decodes the response into out (may be nil).
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	err := c.doOnce(ctx, method, path, body, out)
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.APIRequests.WithLabelValues(method, "success").Inc()
	case AsError(err).StatusCode > 0:
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
	default:
		metrics.APIRequests.WithLabelValues(method, "transport_error").Inc()
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: fmt.Sprintf("encode request body: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Message: fmt.Sprintf("build request: %v", err)}
	}

	requestID := logging.GenerateRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Fresh token per request; skipped when no session is signed in.
	if c.tokens != nil {
		token, err := c.tokens.BearerToken(ctx)
		if err != nil {
			return &Error{Message: fmt.Sprintf("fetch auth token: %v", err)}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logging.Ctx(ctx).Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Msg("api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, respBody)
		logging.Ctx(ctx).Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("api error response")
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Message: fmt.Sprintf("decode response: %v", err), StatusCode: resp.StatusCode}
	}
	return nil
}

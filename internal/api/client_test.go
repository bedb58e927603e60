// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// staticTokens is a TokenSource returning a fixed token.
type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) BearerToken(_ context.Context) (string, error) {
	return s.token, s.err
}

func TestClientInjectsBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, staticTokens{token: "tok-123"})
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.Get(context.Background(), "/ping", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
	if !out.OK {
		t.Error("response not decoded")
	}
}

func TestClientSkipsAuthHeaderWithoutSession(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization") != ""
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	// Empty token means no signed-in session.
	client := NewClient(server.URL, 5*time.Second, staticTokens{})
	if err := client.Get(context.Background(), "/public", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sawAuth {
		t.Error("Authorization header set without a session")
	}
}

func TestClientTokenFetchFailureAborts(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, staticTokens{err: errors.New("refresh failed")})
	err := client.Get(context.Background(), "/x", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("request sent despite token fetch failure")
	}
}

func TestClientForwardsStructuredServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"profile name already in use","field":"name"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	err := client.Post(context.Background(), "/profiles", map[string]string{"name": "kids"}, nil)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if !apiErr.Structured {
		t.Error("structured body not detected")
	}
	if apiErr.Message != "profile name already in use" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if _, ok := apiErr.Details["field"]; !ok {
		t.Error("extra server fields not preserved")
	}
	if got := apiErr.MessageOr("fallback"); got != "profile name already in use" {
		t.Errorf("MessageOr = %q", got)
	}
}

func TestClientUnstructuredErrorUsesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	err := client.Get(context.Background(), "/shows", nil)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Structured {
		t.Error("plain-text body treated as structured")
	}
	if got := apiErr.MessageOr("could not load shows"); got != "could not load shows" {
		t.Errorf("MessageOr = %q, want fallback", got)
	}
}

func TestClientTransportErrorIsNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	client := NewClient(server.URL, time.Second, nil)
	err := client.Get(context.Background(), "/x", nil)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("transport error carries status %d", apiErr.StatusCode)
	}
}

func TestClientMethods(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		method   string
		path     string
		wantBody string
	}{
		{"get", func() error { return client.Get(ctx, "/a", nil) }, http.MethodGet, "/a", ""},
		{"post", func() error { return client.Post(ctx, "/b", map[string]int{"x": 1}, nil) }, http.MethodPost, "/b", `{"x":1}`},
		{"put", func() error { return client.Put(ctx, "/c", map[string]int{"y": 2}, nil) }, http.MethodPut, "/c", `{"y":2}`},
		{"delete", func() error { return client.Delete(ctx, "/d", nil) }, http.MethodDelete, "/d", ""},
		{"path without leading slash", func() error { return client.Get(ctx, "e", nil) }, http.MethodGet, "/e", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBody = ""
			if err := tt.call(); err != nil {
				t.Fatalf("call: %v", err)
			}
			if gotMethod != tt.method {
				t.Errorf("method = %q, want %q", gotMethod, tt.method)
			}
			if gotPath != tt.path {
				t.Errorf("path = %q, want %q", gotPath, tt.path)
			}
			if gotBody != tt.wantBody {
				t.Errorf("body = %q, want %q", gotBody, tt.wantBody)
			}
		})
	}
}

func TestIsStatus(t *testing.T) {
	err := error(&Error{Message: "nope", StatusCode: http.StatusNotFound})
	if !IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus(404) = false")
	}
	if IsStatus(err, http.StatusInternalServerError) {
		t.Error("IsStatus(500) = true")
	}
	if IsStatus(errors.New("plain"), http.StatusNotFound) {
		t.Error("IsStatus on plain error = true")
	}
}

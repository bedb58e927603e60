// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package config loads client configuration from struct defaults, an optional
// YAML file, and KW_-prefixed environment variables, in that priority order.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the top-level client configuration.
type Config struct {
	API    APIConfig    `koanf:"api"`
	Auth   AuthConfig   `koanf:"auth"`
	Socket SocketConfig `koanf:"socket"`
	Cache  CacheConfig  `koanf:"cache"`
	Log    LogConfig    `koanf:"log"`
	Ops    OpsConfig    `koanf:"ops"`
}

// APIConfig configures the REST client adapter.
type APIConfig struct {
	// BaseURL is the KeepWatching API root.
	BaseURL string `koanf:"base_url"`

	// StaticBaseURL serves poster and profile images.
	StaticBaseURL string `koanf:"static_base_url"`

	// Timeout bounds each request end to end.
	Timeout time.Duration `koanf:"timeout"`

	// CircuitBreaker enables the gobreaker wrapper around the adapter.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// AuthConfig configures the external identity provider client.
type AuthConfig struct {
	// BaseURL is the identity provider's REST endpoint.
	BaseURL string `koanf:"base_url"`

	// APIKey identifies this client application to the provider.
	APIKey string `koanf:"api_key"`
}

// SocketConfig configures the realtime update bridge.
type SocketConfig struct {
	// URL is the websocket endpoint.
	URL string `koanf:"url"`

	// ReconnectAttempts bounds consecutive reconnect attempts before the
	// bridge gives up and returns (its supervisor decides what happens next).
	ReconnectAttempts int `koanf:"reconnect_attempts"`

	// ReconnectDelay is the fixed pause between reconnect attempts.
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`

	// PingInterval is the keepalive ping cadence.
	PingInterval time.Duration `koanf:"ping_interval"`
}

// CacheConfig configures the local snapshot cache.
type CacheConfig struct {
	// Dir is the BadgerDB directory. Ignored when InMemory is set.
	Dir string `koanf:"dir"`

	// InMemory runs the cache without disk persistence (tests, ephemeral runs).
	InMemory bool `koanf:"in_memory"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// OpsConfig configures the loopback health/metrics endpoint.
type OpsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// defaultConfig returns a Config with development defaults: everything points
// at a localhost server stack.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api/v1",
			StaticBaseURL:  "http://localhost:5000",
			Timeout:        30 * time.Second,
			CircuitBreaker: false,
		},
		Auth: AuthConfig{
			BaseURL: "http://localhost:9099/identitytoolkit.googleapis.com/v1",
			APIKey:  "",
		},
		Socket: SocketConfig{
			URL:               "ws://localhost:5000/ws",
			ReconnectAttempts: 10,
			ReconnectDelay:    5 * time.Second,
			PingInterval:      30 * time.Second,
		},
		Cache: CacheConfig{
			Dir:      "data/cache",
			InMemory: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Ops: OpsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9465",
		},
	}
}

// Validate checks invariants that would otherwise only surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("api.static_base_url", c.API.StaticBaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("auth.base_url", c.Auth.BaseURL); err != nil {
		return err
	}

	socketURL, err := url.Parse(c.Socket.URL)
	if err != nil {
		return fmt.Errorf("socket.url: %w", err)
	}
	if socketURL.Scheme != "ws" && socketURL.Scheme != "wss" {
		return fmt.Errorf("socket.url: scheme must be ws or wss, got %q", socketURL.Scheme)
	}

	if c.Socket.ReconnectAttempts < 0 {
		return fmt.Errorf("socket.reconnect_attempts: must be >= 0, got %d", c.Socket.ReconnectAttempts)
	}
	if c.Socket.ReconnectDelay <= 0 {
		return fmt.Errorf("socket.reconnect_delay: must be positive, got %s", c.Socket.ReconnectDelay)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout: must be positive, got %s", c.API.Timeout)
	}
	if !c.Cache.InMemory && strings.TrimSpace(c.Cache.Dir) == "" {
		return fmt.Errorf("cache.dir: required unless cache.in_memory is set")
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", field, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: missing host", field)
	}
	return nil
}

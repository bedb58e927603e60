// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"keepwatching.yaml",
	"keepwatching.yml",
	"/etc/keepwatching/config.yaml",
	"/etc/keepwatching/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "KW_CONFIG_PATH"

// envPrefix namespaces every config environment variable.
const envPrefix = "KW_"

// Load assembles the configuration in three layers: struct defaults, an
// optional YAML file, then KW_-prefixed environment variables (highest
// priority). The result is validated before being returned.
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile loads configuration with an explicit file path instead of the
// default search. Used by the -config flag and by tests.
func LoadFile(path string) (*Config, error) {
	return loadFrom(path)
}

func loadFrom(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: struct defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps environment variable names to koanf config paths.
// The first underscore separates the section; the rest stays snake_case:
//
//	KW_API_BASE_URL       -> api.base_url
//	KW_SOCKET_RECONNECT_DELAY -> socket.reconnect_delay
//	KW_LOG_LEVEL          -> log.level
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}

// findConfigFile returns the path of the first config file that exists, or ""
// when none do.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

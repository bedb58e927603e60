// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package filters derives sorted, deduplicated filter value sets from the
// comma-separated genre and streaming-service fields of loaded content.
//
// Both derivations are pure: deterministic for a given input regardless of
// item ordering, and idempotent. Sorting is plain byte-wise string ordering,
// not locale-aware.
package filters

import (
	"sort"
	"strings"

	"github.com/tomtom215/keepwatching/internal/models"
)

// GenreValues returns the unique, sorted genre tokens across items.
//
// Tokens are trimmed of surrounding whitespace before deduplication. An empty
// source field contributes the empty string as a member: splitting "" on ","
// yields one empty token, and that token is deliberately not filtered out to
// keep the derivation faithful to the fields the server actually sent.
func GenreValues[T models.Filterable](items []T) []string {
	return derive(items, func(item T) string { return item.GenreField() })
}

// StreamingServiceValues returns the unique, sorted streaming-service tokens
// across items. Same token handling as GenreValues.
func StreamingServiceValues[T models.Filterable](items []T) []string {
	return derive(items, func(item T) string { return item.StreamingServiceField() })
}

func derive[T models.Filterable](items []T, field func(T) string) []string {
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, token := range strings.Split(field(item), ",") {
			seen[strings.TrimSpace(token)] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

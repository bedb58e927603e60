// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package models defines the client-side data model mirrored from
// KeepWatching server responses.
//
// The server is the system of record for every type in this package. The
// client holds these records in entity stores (internal/store) and persists a
// small subset (account, profiles, preferences) to the local snapshot cache
// (internal/cache) purely as a faster-than-network seed.
package models

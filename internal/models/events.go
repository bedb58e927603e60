// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package models

import "github.com/goccy/go-json"

// Realtime event names pushed by the server over the websocket.
// These are part of the server contract consumed by internal/realtime.
const (
	EventShowsUpdate         = "shows_update"
	EventMoviesUpdate        = "movies_update"
	EventEpisodesUpdate      = "episodes_update"
	EventShowFavoriteAdded   = "show_favorite_added"
	EventMovieFavoriteAdded  = "movie_favorite_added"
	EventMovieStatusUpdate   = "movie_status_update"
	EventNotificationsUpdate = "notifications_update"
)

// RealtimeEvent is the envelope for every inbound websocket message.
// Payload stays raw until the event name selects a concrete type.
type RealtimeEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// MovieStatusPayload accompanies EventMovieStatusUpdate.
type MovieStatusPayload struct {
	MovieID     int64       `json:"movieId"`
	WatchStatus WatchStatus `json:"watchStatus"`
}

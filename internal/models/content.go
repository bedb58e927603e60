// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package models

// WatchStatus is the per-profile viewing state of a piece of content.
//
// Shows use the full set. Movies only ever carry Unaired, NotWatched or
// Watched; the server rejects the in-progress states for them.
type WatchStatus string

const (
	WatchStatusUnaired    WatchStatus = "UNAIRED"
	WatchStatusNotWatched WatchStatus = "NOT_WATCHED"
	WatchStatusWatching   WatchStatus = "WATCHING"
	WatchStatusUpToDate   WatchStatus = "UP_TO_DATE"
	WatchStatusWatched    WatchStatus = "WATCHED"
)

// Filterable is implemented by content types whose comma-separated genre and
// streaming-service fields feed filter-value derivation (internal/filters).
type Filterable interface {
	GenreField() string
	StreamingServiceField() string
}

// Movie is a favorited movie with the owning profile's watch status folded in.
//
// Genres and StreamingServices are comma-separated strings exactly as the
// server sends them; filter derivation splits them on demand.
type Movie struct {
	ID                int64       `json:"id"`
	TMDBID            int64       `json:"tmdbId"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	ReleaseDate       string      `json:"releaseDate"`
	PosterImage       string      `json:"posterImage"`
	BackdropImage     string      `json:"backdropImage"`
	Runtime           int         `json:"runtime"`
	MPARating         string      `json:"mpaRating"`
	UserRating        float64     `json:"userRating"`
	Genres            string      `json:"genres"`
	StreamingServices string      `json:"streamingServices"`
	WatchStatus       WatchStatus `json:"watchStatus"`
}

// GenreField implements Filterable.
func (m Movie) GenreField() string { return m.Genres }

// StreamingServiceField implements Filterable.
func (m Movie) StreamingServiceField() string { return m.StreamingServices }

// Show is a favorited show with per-profile watch status. Seasons are only
// populated by the per-show season fetch, never by the list endpoints.
type Show struct {
	ID                int64       `json:"id"`
	TMDBID            int64       `json:"tmdbId"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	ReleaseDate       string      `json:"releaseDate"`
	PosterImage       string      `json:"posterImage"`
	BackdropImage     string      `json:"backdropImage"`
	Network           string      `json:"network"`
	SeasonCount       int         `json:"seasonCount"`
	EpisodeCount      int         `json:"episodeCount"`
	Genres            string      `json:"genres"`
	StreamingServices string      `json:"streamingServices"`
	WatchStatus       WatchStatus `json:"watchStatus"`
	Seasons           []Season    `json:"seasons,omitempty"`
}

// GenreField implements Filterable.
func (s Show) GenreField() string { return s.Genres }

// StreamingServiceField implements Filterable.
func (s Show) StreamingServiceField() string { return s.StreamingServices }

// Season belongs to a show. A show-level watch-status change cascades to its
// seasons and episodes server-side; the client reflects whatever comes back.
type Season struct {
	ID               int64       `json:"id"`
	ShowID           int64       `json:"showId"`
	Name             string      `json:"name"`
	SeasonNumber     int         `json:"seasonNumber"`
	ReleaseDate      string      `json:"releaseDate"`
	PosterImage      string      `json:"posterImage"`
	NumberOfEpisodes int         `json:"numberOfEpisodes"`
	WatchStatus      WatchStatus `json:"watchStatus"`
	Episodes         []Episode   `json:"episodes,omitempty"`
}

// Episode belongs to a season.
type Episode struct {
	ID            int64       `json:"id"`
	ShowID        int64       `json:"showId"`
	SeasonID      int64       `json:"seasonId"`
	SeasonNumber  int         `json:"seasonNumber"`
	EpisodeNumber int         `json:"episodeNumber"`
	Title         string      `json:"title"`
	Overview      string      `json:"overview"`
	AirDate       string      `json:"airDate"`
	StillImage    string      `json:"stillImage"`
	Runtime       int         `json:"runtime"`
	WatchStatus   WatchStatus `json:"watchStatus"`
}

// CastMember is one credited performer on a movie or show detail page.
type CastMember struct {
	PersonID      int64  `json:"personId"`
	Name          string `json:"name"`
	CharacterName string `json:"characterName"`
	ProfileImage  string `json:"profileImage"`
	Order         int    `json:"order"`
}

// ProfileStatistics is the per-profile dashboard summary computed server-side.
type ProfileStatistics struct {
	ShowCount           int     `json:"showCount"`
	MovieCount          int     `json:"movieCount"`
	ShowsWatching       int     `json:"showsWatching"`
	ShowsUpToDate       int     `json:"showsUpToDate"`
	MoviesWatched       int     `json:"moviesWatched"`
	EpisodesWatched     int     `json:"episodesWatched"`
	WatchProgress       float64 `json:"watchProgress"`
	TotalRuntimeMinutes int     `json:"totalRuntimeMinutes"`
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package models

// Account is the server-issued identity record for a signed-in user.
//
// One account owns many profiles; DefaultProfileID names the profile the
// client activates right after sign-in.
type Account struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	UID              string `json:"uid"`
	Image            string `json:"image"`
	DefaultProfileID int64  `json:"defaultProfileId"`
}

// Profile is a viewing profile belonging to an account. Exactly one profile
// is "active" in a client session at a time; that selection is client state
// (internal/store ActiveProfile), not a field on this type.
type Profile struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
}

// AccountPreferences groups the per-account preference sub-objects.
// Partial updates merge at the sub-object level: a PUT carrying only the
// email sub-object leaves display, notification and privacy untouched.
type AccountPreferences struct {
	Email        EmailPreferences        `json:"email"`
	Display      DisplayPreferences      `json:"display"`
	Notification NotificationPreferences `json:"notification"`
	Privacy      PrivacyPreferences      `json:"privacy"`
}

// EmailPreferences controls outbound email from the server.
type EmailPreferences struct {
	WeeklyDigest   bool `json:"weeklyDigest"`
	MarketingEmail bool `json:"marketingEmail"`
}

// DisplayPreferences controls presentation defaults.
type DisplayPreferences struct {
	Theme              string `json:"theme"`
	DateFormat         string `json:"dateFormat"`
	EpisodeSpoilerSafe bool   `json:"episodeSpoilerSafe"`
}

// NotificationPreferences controls server push and digest notifications.
type NotificationPreferences struct {
	NewSeasonAlerts  bool `json:"newSeasonAlerts"`
	NewEpisodeAlerts bool `json:"newEpisodeAlerts"`
}

// PrivacyPreferences controls data sharing.
type PrivacyPreferences struct {
	AllowRecommendations bool `json:"allowRecommendations"`
	DataCollection       bool `json:"dataCollection"`
}

// PreferencesUpdate is a partial preferences mutation. Nil sub-objects are
// omitted from the request body and left unchanged by the server.
type PreferencesUpdate struct {
	Email        *EmailPreferences        `json:"email,omitempty"`
	Display      *DisplayPreferences      `json:"display,omitempty"`
	Notification *NotificationPreferences `json:"notification,omitempty"`
	Privacy      *PrivacyPreferences      `json:"privacy,omitempty"`
}

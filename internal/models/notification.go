// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package models

// NotificationType distinguishes system-wide broadcasts from per-account
// notifications.
type NotificationType string

const (
	NotificationTypeSystem  NotificationType = "system"
	NotificationTypeAccount NotificationType = "account"
)

// Notification is a server-side notification shown inside the client.
// Dismissal is a soft delete: the server keeps the row but stops returning it.
type Notification struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	StartDate string           `json:"startDate"`
	EndDate   string           `json:"endDate"`
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/keepwatching/internal/api"
	"github.com/tomtom215/keepwatching/internal/models"
	"github.com/tomtom215/keepwatching/internal/notify"
)

// Notifications owns the account's system notifications. Every mutation
// endpoint returns the full remaining list, which replaces local state, so
// the store never has to reason about partial read/dismiss outcomes.
type Notifications struct {
	client   api.Doer
	notifier *notify.Notifier

	mu    sync.RWMutex
	state asyncState
	items []models.Notification
}

// NewNotifications creates an empty notifications store.
func NewNotifications(client api.Doer, notifier *notify.Notifier) *Notifications {
	return &Notifications{client: client, notifier: notifier}
}

// Loading reports whether a fetch is in flight.
func (n *Notifications) Loading() bool {
	return stateReader{mu: &n.mu, state: &n.state}.Loading()
}

// Err returns the last operation failure, or nil.
func (n *Notifications) Err() *api.Error {
	return stateReader{mu: &n.mu, state: &n.state}.Err()
}

// All returns the notifications in server order.
func (n *Notifications) All() []models.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]models.Notification, len(n.items))
	copy(out, n.items)
	return out
}

// UnreadCount returns how many notifications are unread.
func (n *Notifications) UnreadCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, item := range n.items {
		if !item.Read {
			count++
		}
	}
	return count
}

// Fetch replaces the notification list for the account.
func (n *Notifications) Fetch(ctx context.Context, accountID int64) error {
	n.mu.Lock()
	gen := n.state.begin()
	n.mu.Unlock()

	var fetched []models.Notification
	err := n.client.Get(ctx, fmt.Sprintf("/accounts/%d/notifications", accountID), &fetched)
	recordOp("notifications", "fetch", err)

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.state.current(gen) {
		return nil
	}
	if err != nil {
		apiErr := n.state.reject(err)
		n.notifier.Error(apiErr.MessageOr("Could not load your notifications."))
		return err
	}

	n.state.fulfill()
	n.items = fetched
	return nil
}

// SetRead marks one notification read or unread.
func (n *Notifications) SetRead(ctx context.Context, accountID, notificationID int64, read bool) error {
	var remaining []models.Notification
	path := fmt.Sprintf("/accounts/%d/notifications/%d/read", accountID, notificationID)
	err := n.client.Put(ctx, path, map[string]bool{"read": read}, &remaining)
	recordOp("notifications", "set_read", err)
	if err != nil {
		n.fail(err, "Could not update the notification.")
		return err
	}

	n.replace(remaining)
	return nil
}

// SetAllRead marks every notification read or unread.
func (n *Notifications) SetAllRead(ctx context.Context, accountID int64, read bool) error {
	var remaining []models.Notification
	path := fmt.Sprintf("/accounts/%d/notifications/read", accountID)
	err := n.client.Put(ctx, path, map[string]bool{"read": read}, &remaining)
	recordOp("notifications", "set_all_read", err)
	if err != nil {
		n.fail(err, "Could not update your notifications.")
		return err
	}

	n.replace(remaining)
	return nil
}

// Dismiss removes one notification.
func (n *Notifications) Dismiss(ctx context.Context, accountID, notificationID int64) error {
	var remaining []models.Notification
	path := fmt.Sprintf("/accounts/%d/notifications/%d", accountID, notificationID)
	err := n.client.Delete(ctx, path, &remaining)
	recordOp("notifications", "dismiss", err)
	if err != nil {
		n.fail(err, "Could not dismiss the notification.")
		return err
	}

	n.replace(remaining)
	return nil
}

// DismissAll removes every notification.
func (n *Notifications) DismissAll(ctx context.Context, accountID int64) error {
	var remaining []models.Notification
	path := fmt.Sprintf("/accounts/%d/notifications", accountID)
	err := n.client.Delete(ctx, path, &remaining)
	recordOp("notifications", "dismiss_all", err)
	if err != nil {
		n.fail(err, "Could not dismiss your notifications.")
		return err
	}

	n.replace(remaining)
	return nil
}

// Replace swaps in a server-pushed notification list. Used by the realtime
// bridge, which receives the full list in the update event payload.
func (n *Notifications) Replace(items []models.Notification) {
	n.replace(items)
}

// Reset implements Resetter.
func (n *Notifications) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.reset()
	n.items = nil
}

func (n *Notifications) replace(items []models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.fulfill()
	n.items = items
}

func (n *Notifications) fail(err error, fallback string) {
	n.mu.Lock()
	apiErr := n.state.reject(err)
	n.mu.Unlock()
	n.notifier.Error(apiErr.MessageOr(fallback))
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package notify fans out transient activity notifications (success and
// error banners). Entity stores publish here as a side effect of operation
// outcomes, deliberately decoupled from their own state; consumers (a UI, the
// daemon's log sink) subscribe for display.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an activity notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Activity is a single transient notification.
type Activity struct {
	ID       string
	Severity Severity
	Message  string
	Time     time.Time
}

// subscriberBuffer bounds each subscriber channel. A slow subscriber drops
// notifications rather than blocking publishers.
const subscriberBuffer = 32

// recentLimit bounds the retained history.
const recentLimit = 50

// Notifier is a thread-safe activity fan-out.
type Notifier struct {
	mu          sync.Mutex
	subscribers map[int]chan Activity
	nextID      int
	recent      []Activity
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[int]chan Activity)}
}

// Success publishes a success notification.
func (n *Notifier) Success(message string) {
	n.publish(Activity{
		ID:       uuid.New().String(),
		Severity: SeveritySuccess,
		Message:  message,
		Time:     time.Now(),
	})
}

// Error publishes an error notification.
func (n *Notifier) Error(message string) {
	n.publish(Activity{
		ID:       uuid.New().String(),
		Severity: SeverityError,
		Message:  message,
		Time:     time.Now(),
	})
}

func (n *Notifier) publish(activity Activity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.recent = append(n.recent, activity)
	if len(n.recent) > recentLimit {
		n.recent = n.recent[len(n.recent)-recentLimit:]
	}

	for _, ch := range n.subscribers {
		select {
		case ch <- activity:
		default:
			// Subscriber is not keeping up; drop rather than block.
		}
	}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the subscription.
func (n *Notifier) Subscribe() (<-chan Activity, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Activity, subscriberBuffer)
	n.subscribers[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if existing, ok := n.subscribers[id]; ok {
			delete(n.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Recent returns a copy of the retained notification history, oldest first.
func (n *Notifier) Recent() []Activity {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Activity, len(n.recent))
	copy(out, n.recent)
	return out
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package notify

import (
	"testing"
	"time"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.Success("profile created")

	select {
	case activity := <-ch:
		if activity.Severity != SeveritySuccess {
			t.Errorf("severity = %q", activity.Severity)
		}
		if activity.Message != "profile created" {
			t.Errorf("message = %q", activity.Message)
		}
		if activity.ID == "" {
			t.Error("missing activity id")
		}
	case <-time.After(time.Second):
		t.Fatal("no activity received")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Subscribe()
	cancel()

	// Channel is closed after cancel.
	if _, ok := <-ch; ok {
		t.Error("canceled subscription still open")
	}

	// Publishing after cancel must not panic.
	n.Error("late")
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	n := NewNotifier()
	_, cancel := n.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			n.Error("flood")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}

func TestRecentIsBoundedAndOrdered(t *testing.T) {
	n := NewNotifier()
	for i := 0; i < recentLimit+10; i++ {
		n.Success("msg")
	}

	recent := n.Recent()
	if len(recent) != recentLimit {
		t.Errorf("recent length = %d, want %d", len(recent), recentLimit)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Time.Before(recent[i-1].Time) {
			t.Error("recent history out of order")
			break
		}
	}
}

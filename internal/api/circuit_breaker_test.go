// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package api

import (
	"context"
	"errors"
	"testing"
)

// fakeDoer returns a scripted error for every call.
type fakeDoer struct {
	err   error
	calls int
}

func (f *fakeDoer) Get(_ context.Context, _ string, _ any) error    { f.calls++; return f.err }
func (f *fakeDoer) Post(_ context.Context, _ string, _, _ any) error { f.calls++; return f.err }
func (f *fakeDoer) Put(_ context.Context, _ string, _, _ any) error  { f.calls++; return f.err }
func (f *fakeDoer) Delete(_ context.Context, _ string, _ any) error  { f.calls++; return f.err }

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &fakeDoer{}
	breaker := NewBreakerClient(inner)

	if err := breaker.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestBreakerPropagatesFailures(t *testing.T) {
	inner := &fakeDoer{err: &Error{Message: "boom", StatusCode: 500}}
	breaker := NewBreakerClient(inner)

	err := breaker.Post(context.Background(), "/x", nil, nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
}

func TestBreakerOpensAfterSustainedFailures(t *testing.T) {
	inner := &fakeDoer{err: &Error{Message: "down", StatusCode: 503}}
	breaker := NewBreakerClient(inner)
	ctx := context.Background()

	// Ten straight failures satisfy the minimum request count and the 60%
	// failure ratio, opening the circuit.
	for i := 0; i < 10; i++ {
		_ = breaker.Get(ctx, "/x", nil)
	}

	callsBefore := inner.calls
	err := breaker.Get(ctx, "/x", nil)
	if err == nil {
		t.Fatal("expected rejection from open circuit")
	}
	if inner.calls != callsBefore {
		t.Error("open circuit still forwarded the request")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("rejection type = %T, want *Error", err)
	}
}

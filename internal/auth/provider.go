// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package auth implements the client for the external identity provider.
//
// Authentication is fully delegated: email/password and Google sign-in, ID
// token refresh, email verification and password reset all happen against the
// provider's REST API. This package never stores or hashes passwords; it only
// holds the provider-issued tokens for the current session.
package auth

import (
	"context"
	"errors"
)

// ErrNotSignedIn is returned by session-scoped operations when no identity
// session exists.
var ErrNotSignedIn = errors.New("auth: no signed-in session")

// Identity is the provider-issued identity for a signed-in user.
type Identity struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// Provider is the identity surface the session layer depends on. Implemented
// by *Client; tests substitute fakes.
type Provider interface {
	// SignUp registers a new email/password identity and opens a session.
	SignUp(ctx context.Context, email, password string) (*Identity, error)

	// SignIn opens a session with an email/password identity.
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithGoogle exchanges a Google ID token for a provider session.
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error)

	// SignOut discards the local session. The provider keeps no server-side
	// session state to invalidate.
	SignOut()

	// SignedIn reports whether a session exists.
	SignedIn() bool

	// CurrentIdentity returns the signed-in identity, or ErrNotSignedIn.
	CurrentIdentity() (*Identity, error)

	// BearerToken returns a fresh ID token for the session, refreshing when
	// near expiry. Returns ("", nil) when no session exists, which callers
	// treat as "send the request unauthenticated".
	BearerToken(ctx context.Context) (string, error)

	// SendEmailVerification asks the provider to mail a verification link to
	// the signed-in identity.
	SendEmailVerification(ctx context.Context) error

	// SendPasswordReset asks the provider to mail a password reset link.
	// Works without a session.
	SendPasswordReset(ctx context.Context, email string) error

	// DeleteUser permanently deletes the signed-in identity at the provider
	// and discards the local session.
	DeleteUser(ctx context.Context) error
}

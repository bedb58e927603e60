// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package auth

import (
	"errors"
	"strings"
)

// ProviderError is a translated identity provider failure. Code keeps the
// provider's raw error code for logging; Message is user-readable.
type ProviderError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return "auth: " + e.Message
}

// providerMessages maps provider error codes to user-readable messages.
// Codes sometimes arrive with a suffix (" : Password should be..."), so
// lookup matches on the leading token.
var providerMessages = map[string]string{
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"EMAIL_NOT_FOUND":             "No account found with this email.",
	"INVALID_PASSWORD":            "Incorrect password. Please try again.",
	"INVALID_LOGIN_CREDENTIALS":   "Incorrect email or password. Please try again.",
	"USER_DISABLED":               "This account has been disabled.",
	"USER_NOT_FOUND":              "No account found with this email.",
	"WEAK_PASSWORD":               "Password should be at least 8 characters.",
	"INVALID_EMAIL":               "Please enter a valid email address.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Please try again later.",
	"TOKEN_EXPIRED":               "Your session has expired. Please sign in again.",
	"INVALID_REFRESH_TOKEN":       "Your session has expired. Please sign in again.",
	"INVALID_IDP_RESPONSE":        "Google sign-in failed. Please try again.",
	"OPERATION_NOT_ALLOWED":       "This sign-in method is not enabled.",
}

// fallbackMessage covers codes the table does not know.
const fallbackMessage = "Something went wrong signing you in. Please try again."

// translateCode converts a provider error code into a ProviderError with a
// user-readable message, falling back to a generic one for unknown codes.
func translateCode(code string) *ProviderError {
	key := code
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		key = code[:idx]
	}

	if msg, ok := providerMessages[key]; ok {
		return &ProviderError{Code: code, Message: msg}
	}
	return &ProviderError{Code: code, Message: fallbackMessage}
}

// MessageFor returns the user-readable message for an authentication error.
// Non-provider errors (network failures, timeouts) get the generic fallback.
func MessageFor(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Message
	}
	if errors.Is(err, ErrNotSignedIn) {
		return "You are not signed in."
	}
	return fallbackMessage
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package api

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Error is the normalized failure shape for every REST call.
//
// When the server responds with a structured body ({"message": ..., ...}),
// Message carries the server's text and Details carries any extra fields
// verbatim. Transport failures and unparseable bodies produce an Error with
// Structured=false and a generic message; callers substitute their own
// per-operation fallback via MessageOr.
type Error struct {
	Message    string
	StatusCode int
	Structured bool
	Details    map[string]json.RawMessage
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return "api: " + e.Message
}

// MessageOr returns the structured server message when one exists, otherwise
// the caller's per-operation fallback.
func (e *Error) MessageOr(fallback string) string {
	if e.Structured && e.Message != "" {
		return e.Message
	}
	return fallback
}

// decodeError builds an Error from a non-2xx response body. A body that
// parses as JSON with a message field is forwarded as-is; anything else
// degrades to a generic message for the status.
func decodeError(statusCode int, body []byte) *Error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		var message string
		if raw, ok := fields["message"]; ok {
			if err := json.Unmarshal(raw, &message); err == nil && message != "" {
				delete(fields, "message")
				return &Error{
					Message:    message,
					StatusCode: statusCode,
					Structured: true,
					Details:    fields,
				}
			}
		}
	}

	return &Error{
		Message:    fmt.Sprintf("request failed with status %d", statusCode),
		StatusCode: statusCode,
	}
}

// AsError extracts an *Error from err, or wraps err in an unstructured one.
// Stores use this so every stored failure has the normalized shape.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Message: err.Error()}
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, statusCode int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package validation provides struct validation using go-playground/validator
// v10 for client-side form fields (email format, password length, name
// length). Validation failures stay local to the caller; they never reach the
// entity stores or the network.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single field validation failure with a user-readable
// message.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the struct field name that failed validation.
func (e *FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *FieldError) Tag() string { return e.tag }

// Error returns the user-readable message.
func (e *FieldError) Error() string { return e.message }

// RequestValidationError collects every field failure for one request struct.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual field errors.
func (ve *RequestValidationError) Errors() []FieldError { return ve.errors }

// Error implements the error interface with a combined message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the singleton validator instance. Thread-safe; the
// instance caches struct metadata across calls.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates s, returning nil on success or a
// *RequestValidationError carrying a user-readable message per failed field.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return &RequestValidationError{errors: []FieldError{{
			field:   "",
			tag:     "invalid",
			message: "validation failed: " + invalid.Error(),
		}}}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{errors: []FieldError{{
			message: err.Error(),
		}}}
	}

	out := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			message: messageFor(fe),
		})
	}
	return &RequestValidationError{errors: out}
}

// messageFor maps a validator failure to the message a form would display.
func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address."
	case "min":
		if fe.Type().Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Type().Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

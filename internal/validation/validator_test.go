// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

package validation

import (
	"strings"
	"testing"
)

type signUpForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Name     string `validate:"required,min=1,max=50"`
}

func TestValidateStructPasses(t *testing.T) {
	form := signUpForm{Email: "viewer@example.com", Password: "longenough", Name: "Viewer"}
	if err := ValidateStruct(&form); err != nil {
		t.Errorf("ValidateStruct: %v", err)
	}
}

func TestValidateStructFieldMessages(t *testing.T) {
	tests := []struct {
		name     string
		form     signUpForm
		wantPart string
	}{
		{
			name:     "bad email",
			form:     signUpForm{Email: "not-an-email", Password: "longenough", Name: "V"},
			wantPart: "valid email address",
		},
		{
			name:     "short password",
			form:     signUpForm{Email: "a@b.co", Password: "short", Name: "V"},
			wantPart: "at least 8 characters",
		},
		{
			name:     "name too long",
			form:     signUpForm{Email: "a@b.co", Password: "longenough", Name: strings.Repeat("x", 51)},
			wantPart: "at most 50 characters",
		},
		{
			name:     "missing name",
			form:     signUpForm{Email: "a@b.co", Password: "longenough"},
			wantPart: "Name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.form)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Errorf("error %q missing %q", err.Error(), tt.wantPart)
			}
		})
	}
}

func TestValidateStructCollectsMultipleErrors(t *testing.T) {
	err := ValidateStruct(&signUpForm{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 3 {
		t.Errorf("error count = %d, want 3", len(err.Errors()))
	}
}

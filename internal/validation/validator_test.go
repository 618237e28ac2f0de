// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package validation

import (
	"errors"
	"testing"
)

type sampleInput struct {
	Key     string   `json:"key" validate:"required,slug"`
	Rollout int      `json:"rollout" validate:"min=0,max=100"`
	Role    string   `json:"role" validate:"omitempty,oneof=base elevated admin"`
	Emails  []string `json:"emails" validate:"omitempty,dive,email"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      sampleInput
		wantErr    bool
		wantFields []string
	}{
		{
			name:  "valid input",
			input: sampleInput{Key: "new-checkout", Rollout: 50, Role: "admin"},
		},
		{
			name:       "missing key",
			input:      sampleInput{Rollout: 10},
			wantErr:    true,
			wantFields: []string{"key"},
		},
		{
			name:       "rollout out of range and bad role",
			input:      sampleInput{Key: "x", Rollout: 150, Role: "owner"},
			wantErr:    true,
			wantFields: []string{"rollout", "role"},
		},
		{
			name:       "uppercase slug",
			input:      sampleInput{Key: "New Checkout"},
			wantErr:    true,
			wantFields: []string{"key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *RequestValidationError, got %T", err)
			}
			for _, f := range tt.wantFields {
				if !ve.Has(f) {
					t.Errorf("expected field %q to fail, got %v", f, ve.Fields)
				}
			}
		})
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance")
	}
}

func TestRequestValidationErrorMessage(t *testing.T) {
	err := &RequestValidationError{Fields: []FieldError{
		{Field: "a", Message: "a is required"},
		{Field: "b", Message: "b must be at least 0"},
	}}
	if got := err.Error(); got != "a is required; b must be at least 0" {
		t.Errorf("unexpected message %q", got)
	}
	if (&RequestValidationError{}).Error() != "validation failed" {
		t.Error("expected generic message for empty error")
	}
}

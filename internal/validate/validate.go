// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package validate collects field-level input errors into a single
// VALIDATION_FAILED error.
package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Code is the oops code of every error produced by this package.
const Code = "VALIDATION_FAILED"

// FieldError describes one rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Errors accumulates field errors. The zero value is ready to use.
type Errors struct {
	fields []FieldError
}

// Add records a failure for field.
func (e *Errors) Add(field, reason string) {
	e.fields = append(e.fields, FieldError{Field: field, Reason: reason})
}

// Required fails field when value is blank after trimming.
// It reports whether the value was present.
func (e *Errors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "required")
		return false
	}
	return true
}

// Date fails field unless value is a calendar date in YYYY-MM-DD form.
func (e *Errors) Date(field, value string) {
	if !e.Required(field, value) {
		return
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		e.Add(field, "must be a date in YYYY-MM-DD format")
	}
}

// Clock fails field unless value is a 24-hour time in HH:MM form.
func (e *Errors) Clock(field, value string) {
	if !e.Required(field, value) {
		return
	}
	if _, err := time.Parse("15:04", value); err != nil || len(value) != 5 {
		e.Add(field, "must be a time in HH:MM format")
	}
}

// IntRange fails field unless value is a base-10 integer in [lo, hi].
func (e *Errors) IntRange(field, value string, lo, hi int) {
	if !e.Required(field, value) {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < lo || n > hi {
		e.Add(field, "must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
	}
}

// Fields returns the recorded failures.
func (e *Errors) Fields() []FieldError {
	return e.fields
}

// Err returns nil when nothing failed, otherwise a VALIDATION_FAILED error
// carrying every field failure under the "fields" context key.
func (e *Errors) Err() error {
	if len(e.fields) == 0 {
		return nil
	}
	first := e.fields[0]
	return oops.Code(Code).
		With("fields", e.fields).
		Errorf("invalid %s: %s", first.Field, first.Reason)
}

// Fail is shorthand for a single-field validation error.
func Fail(field, reason string) error {
	var e Errors
	e.Add(field, reason)
	return e.Err()
}

// FieldsOf extracts the field failures from a VALIDATION_FAILED error.
func FieldsOf(err error) []FieldError {
	oopsErr, ok := oops.AsOops(err)
	if !ok || oopsErr.Code() != Code {
		return nil
	}
	fields, _ := oopsErr.Context()["fields"].([]FieldError)
	return fields
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package auth

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/internal/validate"
)

// Registration defaults.
const (
	DefaultPhonePattern      = `^\+7[0-9]{10}$`
	DefaultPasswordMinLength = 12
)

// CredentialPolicy decides which phones and passwords may register.
type CredentialPolicy struct {
	phone     *regexp.Regexp
	minLength int
}

// NewCredentialPolicy compiles phonePattern. minLength counts runes.
func NewCredentialPolicy(phonePattern string, minLength int) (*CredentialPolicy, error) {
	re, err := regexp.Compile(phonePattern)
	if err != nil {
		return nil, oops.Code("AUTH_POLICY_INVALID").With("phone_pattern", phonePattern).Wrap(err)
	}
	if minLength < 1 {
		return nil, oops.Code("AUTH_POLICY_INVALID").Errorf("password minimum length must be positive, got %d", minLength)
	}
	return &CredentialPolicy{phone: re, minLength: minLength}, nil
}

// DefaultCredentialPolicy returns the +7 phone and 12 character password policy.
func DefaultCredentialPolicy() *CredentialPolicy {
	return &CredentialPolicy{phone: regexp.MustCompile(DefaultPhonePattern), minLength: DefaultPasswordMinLength}
}

// CheckPhone records a failure for a phone that does not match the pattern.
func (p *CredentialPolicy) CheckPhone(v *validate.Errors, phone string) {
	if !v.Required("phone", phone) {
		return
	}
	if !p.phone.MatchString(phone) {
		v.Add("phone", "invalid phone number format")
	}
}

// CheckPassword requires the minimum length and at least one lowercase
// letter, uppercase letter, digit and symbol.
func (p *CredentialPolicy) CheckPassword(v *validate.Errors, password string) {
	if password == "" {
		v.Add("password", "required")
		return
	}
	if utf8.RuneCountInString(password) < p.minLength {
		v.Add("password", "too short")
		return
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		v.Add("password", "must contain lowercase, uppercase, digit and symbol characters")
	}
}

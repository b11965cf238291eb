// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("PROFILE_CONFLICT").Errorf("phone already registered")
	errutil.AssertErrorCode(t, err, "PROFILE_CONFLICT")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("phone", "+79161234567").Errorf("conflict")
	errutil.AssertErrorContext(t, err, "phone", "+79161234567")
}

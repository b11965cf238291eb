// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of a session token: 32 bytes, 64 hex chars.
const TokenBytes = 32

// TokenIssuer mints opaque session tokens.
type TokenIssuer interface {
	Issue() (string, error)
}

// RandomTokenIssuer draws tokens from crypto/rand.
type RandomTokenIssuer struct{}

// Issue returns a new hex-encoded token.
func (RandomTokenIssuer) Issue() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the SHA-256 hex digest of token. Sessions are stored
// under this digest so a leaked store does not leak usable tokens.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package auth registers tutors and manages their sessions.
//
// # Primitives
//
//   - Argon2idHasher - argon2id password digests in PHC form
//   - RandomTokenIssuer - 32 random bytes, hex encoded
//   - SessionStore - sessions in the kv store under "session:{sha256(token)}"
//   - CredentialPolicy - phone format and password strength rules
//
// # Service
//
// Service ties the primitives to the tutor profile store:
//   - Register - validate, hash, create the profile and credential
//   - Login - verify the password and start a session
//   - Logout - end a session, idempotent
//   - ResolveSession - verify a token and load the tutor's profile
//
// Sessions have a fixed 24 hour window and are purged when presented after expiry.
package auth

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/internal/kv"
)

// DefaultSessionTTL is the fixed lifetime of a session.
const DefaultSessionTTL = 24 * time.Hour

const sessionPrefix = "session:"

// Session is an authenticated login. It never slides: ExpiresAt is fixed at creation.
type Session struct {
	UserID    string    `json:"userId"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpiredAt reports whether the session is expired at t.
// A session is still valid at exactly ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// SessionStore keeps sessions in a kv.Store keyed by the token digest.
// Expired entries are removed lazily when presented.
type SessionStore struct {
	kv     kv.Store
	tokens TokenIssuer
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithTTL overrides DefaultSessionTTL.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionStore) { s.ttl = ttl }
}

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// WithTokenIssuer overrides RandomTokenIssuer.
func WithTokenIssuer(t TokenIssuer) SessionOption {
	return func(s *SessionStore) { s.tokens = t }
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *SessionStore) { s.logger = l }
}

// NewSessionStore creates a SessionStore over store.
func NewSessionStore(store kv.Store, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		kv:     store,
		tokens: RandomTokenIssuer{},
		ttl:    DefaultSessionTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session for identity and returns it with its token.
// The token is returned only here; the store keeps its digest.
func (s *SessionStore) Create(ctx context.Context, identity, phone string) (*Session, string, error) {
	token, err := s.tokens.Issue()
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	sess := &Session{
		UserID:    identity,
		Phone:     phone,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, "", oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	if err := s.kv.Set(ctx, sessionPrefix+HashToken(token), string(data)); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").With("identity", identity).Wrap(err)
	}
	return sess, token, nil
}

// Verify returns the session for token. Unknown tokens fail with
// SESSION_INVALID. Expired tokens fail with SESSION_EXPIRED and are removed.
func (s *SessionStore) Verify(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Errorf("missing session token")
	}

	key := sessionPrefix + HashToken(token)
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
	}
	if err != nil {
		return nil, oops.Code("SESSION_VERIFY_FAILED").Wrap(err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}

	if sess.IsExpiredAt(s.now()) {
		if delErr := s.kv.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to purge expired session", "identity", sess.UserID, "error", delErr)
		}
		return nil, oops.Code("SESSION_EXPIRED").
			With("expired_at", sess.ExpiresAt).
			Errorf("session has expired")
	}
	return &sess, nil
}

// Delete removes the session for token. Unknown tokens are not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.kv.Delete(ctx, sessionPrefix+HashToken(token)); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

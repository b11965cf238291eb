// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/internal/tutor"
	"github.com/tutorcab/tutorcab/internal/validate"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

// dummyPasswordHash is verified against when the phone is unknown so both
// failure paths cost one argon2id computation. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// RegisterInput is a self-registration request.
type RegisterInput struct {
	Phone      string
	Password   string
	FullName   string
	Subjects   []string
	City       string
	Experience string
	Levels     []string
	Format     string
	Rate       string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token   string
	Session *Session
	Profile *tutor.TutorProfile
}

// Service registers tutors and manages their sessions.
type Service struct {
	profiles *tutor.ProfileStore
	sessions *SessionStore
	hasher   PasswordHasher
	policy   *CredentialPolicy
	now      func() time.Time
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCredentialPolicy overrides DefaultCredentialPolicy.
func WithCredentialPolicy(p *CredentialPolicy) ServiceOption {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithServiceClock overrides the time source for registration timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewAuthService creates a Service.
func NewAuthService(profiles *tutor.ProfileStore, sessions *SessionStore, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if profiles == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("profile store is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	s := &Service{
		profiles: profiles,
		sessions: sessions,
		hasher:   hasher,
		policy:   DefaultCredentialPolicy(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger cannot be nil")
	}
	return s, nil
}

// Register creates a profile at onboarding step 0 and its credential.
// Returns the new identity.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if err := s.validateRegistration(in); err != nil {
		return "", err
	}

	// Cheap pre-check so a taken phone does not cost a password hash.
	// ProfileStore.Create repeats it under the phone lock.
	if _, err := s.profiles.GetByPhone(ctx, in.Phone); err == nil {
		return "", oops.Code("PROFILE_CONFLICT").With("phone", in.Phone).Errorf("phone already registered")
	} else if !errors.Is(err, tutor.ErrNotFound) {
		return "", oops.Code("AUTH_REGISTER_FAILED").With("operation", "check phone").Wrap(err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	now := s.now()
	profile := tutor.NewProfile(in.Phone, tutor.ProfileFields{
		FullName:   strings.TrimSpace(in.FullName),
		Subjects:   trimAll(in.Subjects),
		City:       strings.TrimSpace(in.City),
		Experience: in.Experience,
		Levels:     trimAll(in.Levels),
		Format:     in.Format,
		Rate:       in.Rate,
	}, now)
	rec := &tutor.AuthRecord{
		UserID:         profile.ID,
		Phone:          in.Phone,
		HashedPassword: digest,
		CreatedAt:      now.UTC(),
	}

	if err := s.profiles.Create(ctx, profile, rec); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "tutor registered", "identity", profile.ID)
	return profile.ID, nil
}

// Login checks the password for phone and starts a session.
//
// An unknown phone fails with AUTH_PHONE_NOT_FOUND and a wrong password with
// AUTH_BAD_CREDENTIAL. Both take one password verification.
func (s *Service) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	rec, lookupErr := s.profiles.GetAuth(ctx, phone)
	if lookupErr != nil {
		if !errors.Is(lookupErr, tutor.ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get auth record").Wrap(lookupErr)
		}
		_, _ = s.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing only
		s.logger.InfoContext(ctx, "login rejected", "reason", "unknown_phone")
		return nil, oops.Code("AUTH_PHONE_NOT_FOUND").Errorf("invalid phone or password")
	}

	ok, err := s.hasher.Verify(password, rec.HashedPassword)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("identity", rec.UserID).
			Wrap(err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "login rejected", "reason", "bad_credential", "identity", rec.UserID)
		return nil, oops.Code("AUTH_BAD_CREDENTIAL").With("identity", rec.UserID).Errorf("invalid phone or password")
	}

	profile, err := s.profiles.GetByIdentity(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, tutor.ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, "credential without profile", err)
		}
		return nil, err
	}

	sess, token, err := s.sessions.Create(ctx, rec.UserID, rec.Phone)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "identity", rec.UserID)
	return &LoginResult{Token: token, Session: sess, Profile: profile}, nil
}

// Logout ends the session for token. It succeeds for unknown tokens.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ResolveSession returns the session for token and the profile it belongs to.
// A live session whose profile is missing fails with PROFILE_NOT_FOUND.
func (s *Service) ResolveSession(ctx context.Context, token string) (*Session, *tutor.TutorProfile, error) {
	sess, err := s.sessions.Verify(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.profiles.GetByIdentity(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, tutor.ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, "session references missing profile", err)
		}
		return nil, nil, err
	}
	return sess, profile, nil
}

func (s *Service) validateRegistration(in RegisterInput) error {
	var v validate.Errors
	s.policy.CheckPhone(&v, in.Phone)
	s.policy.CheckPassword(&v, in.Password)
	v.Required("fullName", in.FullName)
	v.Required("city", in.City)
	if len(trimAll(in.Subjects)) == 0 {
		v.Add("subjects", "at least one subject is required")
	}
	return v.Err()
}

// trimAll trims each value and drops blanks.
func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/internal/kv"
)

// ErrNotFound is wrapped by errors for absent profiles and credentials.
var ErrNotFound = errors.New("not found")

const (
	profilePrefix    = "tutor:"
	phoneIndexPrefix = "user:"
	authPrefix       = "auth:"
)

// ProfileStore persists profiles and credentials in a kv.Store.
type ProfileStore struct {
	kv     kv.Store
	locks  *Locker
	logger *slog.Logger
}

// StoreOption configures a ProfileStore.
type StoreOption func(*ProfileStore)

// WithLocker shares a Locker between stores backed by the same kv.Store.
func WithLocker(l *Locker) StoreOption {
	return func(s *ProfileStore) { s.locks = l }
}

// WithStoreLogger sets the logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *ProfileStore) { s.logger = l }
}

// NewProfileStore creates a ProfileStore over store.
func NewProfileStore(store kv.Store, opts ...StoreOption) *ProfileStore {
	s := &ProfileStore{kv: store, locks: NewLocker(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new profile and its credential. It fails with
// PROFILE_CONFLICT when the phone is already registered.
//
// The phone index is written last: until it exists the registration is not
// visible to lookups by phone, so a failure partway through can be retried.
func (s *ProfileStore) Create(ctx context.Context, p *TutorProfile, rec *AuthRecord) error {
	unlock, err := s.locks.Lock(ctx, phoneIndexPrefix+p.Phone)
	if err != nil {
		return oops.Code("PROFILE_STORE_FAILED").With("operation", "lock phone").Wrap(err)
	}
	defer unlock()

	_, err = s.kv.Get(ctx, phoneIndexPrefix+p.Phone)
	switch {
	case err == nil:
		return oops.Code("PROFILE_CONFLICT").With("phone", p.Phone).Errorf("phone already registered")
	case !errors.Is(err, kv.ErrNotFound):
		return oops.Code("PROFILE_STORE_FAILED").With("operation", "check phone index").Wrap(err)
	}

	if err := s.Save(ctx, p); err != nil {
		return err
	}
	if err := s.putJSON(ctx, authPrefix+p.Phone, rec); err != nil {
		return oops.Code("PROFILE_STORE_FAILED").With("operation", "write auth record").Wrap(err)
	}
	if err := s.kv.Set(ctx, phoneIndexPrefix+p.Phone, p.ID); err != nil {
		return oops.Code("PROFILE_STORE_FAILED").With("operation", "write phone index").Wrap(err)
	}

	s.logger.DebugContext(ctx, "profile created", "identity", p.ID)
	return nil
}

// GetByIdentity loads the canonical profile record.
func (s *ProfileStore) GetByIdentity(ctx context.Context, identity string) (*TutorProfile, error) {
	var p TutorProfile
	if err := s.getJSON(ctx, profilePrefix+identity, &p); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, oops.Code("PROFILE_NOT_FOUND").With("identity", identity).Wrap(ErrNotFound)
		}
		return nil, oops.Code("PROFILE_STORE_FAILED").With("operation", "read profile").With("identity", identity).Wrap(err)
	}
	p.normalize()
	return &p, nil
}

// GetByPhone resolves the phone index and loads the canonical record, so it
// always returns the same profile as GetByIdentity.
func (s *ProfileStore) GetByPhone(ctx context.Context, phone string) (*TutorProfile, error) {
	identity, err := s.identityFor(ctx, phone)
	if err != nil {
		return nil, err
	}
	return s.GetByIdentity(ctx, identity)
}

// GetAuth returns the credential for a registered phone. Credentials of a
// registration whose phone index was never published are not returned.
func (s *ProfileStore) GetAuth(ctx context.Context, phone string) (*AuthRecord, error) {
	identity, err := s.identityFor(ctx, phone)
	if err != nil {
		return nil, err
	}

	var rec AuthRecord
	if err := s.getJSON(ctx, authPrefix+phone, &rec); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, oops.Code("AUTH_RECORD_NOT_FOUND").With("identity", identity).Wrap(ErrNotFound)
		}
		return nil, oops.Code("PROFILE_STORE_FAILED").With("operation", "read auth record").Wrap(err)
	}
	if rec.UserID != identity {
		return nil, oops.Code("AUTH_RECORD_MISMATCH").
			With("identity", identity).
			With("record_identity", rec.UserID).
			Errorf("auth record does not belong to indexed profile")
	}
	return &rec, nil
}

// Save overwrites the canonical record for p.ID. Read-modify-write callers
// must use Update instead.
func (s *ProfileStore) Save(ctx context.Context, p *TutorProfile) error {
	p.normalize()
	if err := s.putJSON(ctx, profilePrefix+p.ID, p); err != nil {
		return oops.Code("PROFILE_STORE_FAILED").With("operation", "write profile").With("identity", p.ID).Wrap(err)
	}
	return nil
}

// Update loads the profile, applies fn, and saves the result while holding
// the identity's lock. If fn returns an error nothing is written. The
// returned profile is the saved state.
func (s *ProfileStore) Update(ctx context.Context, identity string, fn func(*TutorProfile) error) (*TutorProfile, error) {
	unlock, err := s.locks.Lock(ctx, profilePrefix+identity)
	if err != nil {
		return nil, oops.Code("PROFILE_STORE_FAILED").With("operation", "lock profile").Wrap(err)
	}
	defer unlock()

	p, err := s.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (s *ProfileStore) identityFor(ctx context.Context, phone string) (string, error) {
	identity, err := s.kv.Get(ctx, phoneIndexPrefix+phone)
	if errors.Is(err, kv.ErrNotFound) {
		return "", oops.Code("PROFILE_NOT_FOUND").With("phone", phone).Wrap(ErrNotFound)
	}
	if err != nil {
		return "", oops.Code("PROFILE_STORE_FAILED").With("operation", "read phone index").Wrap(err)
	}
	return identity, nil
}

func (s *ProfileStore) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return oops.Code("PROFILE_DECODE_FAILED").With("key", key).Wrap(err)
	}
	return nil
}

func (s *ProfileStore) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return oops.Code("PROFILE_ENCODE_FAILED").With("key", key).Wrap(err)
	}
	return s.kv.Set(ctx, key, string(data))
}

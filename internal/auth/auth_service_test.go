// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/kv"
	"github.com/tutorcab/tutorcab/internal/tutor"
	"github.com/tutorcab/tutorcab/internal/validate"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

const (
	testPhone    = "+79161234567"
	testPassword = "Str0ng!Passw0rd"
)

type fixture struct {
	kv       *kv.MemoryStore
	profiles *tutor.ProfileStore
	sessions *auth.SessionStore
	clock    *fakeClock
	svc      *auth.Service
}

func newFixture(t *testing.T, opts ...auth.ServiceOption) *fixture {
	t.Helper()
	mem := kv.NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	profiles := tutor.NewProfileStore(mem)
	sessions := auth.NewSessionStore(mem, auth.WithSessionClock(clock.Now))
	opts = append([]auth.ServiceOption{auth.WithServiceClock(clock.Now)}, opts...)
	svc, err := auth.NewAuthService(profiles, sessions, auth.NewArgon2idHasherWithParams(fastParams), opts...)
	require.NoError(t, err)
	return &fixture{kv: mem, profiles: profiles, sessions: sessions, clock: clock, svc: svc}
}

func validRegistration() auth.RegisterInput {
	return auth.RegisterInput{
		Phone:    testPhone,
		Password: testPassword,
		FullName: "Анна Петрова",
		Subjects: []string{"Математика", " Физика "},
		City:     "Москва",
		Levels:   []string{"ОГЭ"},
		Format:   "online",
		Rate:     "2000",
	}
}

func TestNewAuthService_NilDependencies(t *testing.T) {
	mem := kv.NewMemoryStore()
	profiles := tutor.NewProfileStore(mem)
	sessions := auth.NewSessionStore(mem)
	hasher := auth.NewArgon2idHasherWithParams(fastParams)

	tests := []struct {
		name        string
		profiles    *tutor.ProfileStore
		sessions    *auth.SessionStore
		hasher      auth.PasswordHasher
		opts        []auth.ServiceOption
		expectError string
	}{
		{"nil profiles", nil, sessions, hasher, nil, "profile store is required"},
		{"nil sessions", profiles, nil, hasher, nil, "session store is required"},
		{"nil hasher", profiles, sessions, nil, nil, "password hasher is required"},
		{"nil logger", profiles, sessions, hasher, []auth.ServiceOption{auth.WithLogger(nil)}, "logger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAuthService(tt.profiles, tt.sessions, tt.hasher, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates profile at step 0", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)

		p, err := f.profiles.GetByIdentity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tutor.StepNotStarted, p.OnboardingStep)
		assert.Equal(t, []string{"Математика", "Физика"}, p.Subjects)
		assert.Empty(t, p.Students)
		assert.Empty(t, p.Lessons)
		assert.Empty(t, p.Materials)
		assert.Equal(t, f.clock.t, p.CreatedAt)

		rec, err := f.profiles.GetAuth(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, id, rec.UserID)
		assert.NotContains(t, rec.HashedPassword, testPassword)
	})

	t.Run("second registration conflicts and first stays intact", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)

		again := validRegistration()
		again.FullName = "Другой Человек"
		again.Password = "An0ther!Passw0rd"
		_, err = f.svc.Register(ctx, again)
		errutil.AssertErrorCode(t, err, "PROFILE_CONFLICT")

		p, err := f.profiles.GetByPhone(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, first, p.ID)
		assert.Equal(t, "Анна Петрова", p.FullName)

		_, err = f.svc.Login(ctx, testPhone, testPassword)
		assert.NoError(t, err, "original credential still works")
	})

	invalid := []struct {
		name   string
		mutate func(in *auth.RegisterInput)
		field  string
	}{
		{"bad phone", func(in *auth.RegisterInput) { in.Phone = "89161234567" }, "phone"},
		{"weak password", func(in *auth.RegisterInput) { in.Password = "password" }, "password"},
		{"no subjects", func(in *auth.RegisterInput) { in.Subjects = []string{" "} }, "subjects"},
		{"blank name", func(in *auth.RegisterInput) { in.FullName = "  " }, "fullName"},
		{"blank city", func(in *auth.RegisterInput) { in.City = "" }, "city"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validRegistration()
			tt.mutate(&in)
			_, err := f.svc.Register(ctx, in)
			errutil.AssertErrorCode(t, err, validate.Code)
			fields := validate.FieldsOf(err)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
			assert.Equal(t, 0, f.kv.Len(), "nothing is written")
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a token that verifies to the identity", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)

		res, err := f.svc.Login(ctx, testPhone, testPassword)
		require.NoError(t, err)
		assert.Len(t, res.Token, 64)
		assert.Equal(t, id, res.Profile.ID)

		sess, err := f.sessions.Verify(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, id, sess.UserID)
	})

	t.Run("unknown phone and wrong password are distinguishable", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)

		_, errUnknown := f.svc.Login(ctx, "+70000000000", testPassword)
		errutil.AssertErrorCode(t, errUnknown, "AUTH_PHONE_NOT_FOUND")

		_, errBad := f.svc.Login(ctx, testPhone, "Wr0ng!Password")
		errutil.AssertErrorCode(t, errBad, "AUTH_BAD_CREDENTIAL")

		assert.Equal(t, errUnknown.Error(), errBad.Error(), "messages do not reveal which part failed")
	})

	t.Run("no session is created on failure", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		before := f.kv.Len()

		_, err = f.svc.Login(ctx, testPhone, "Wr0ng!Password")
		require.Error(t, err)
		assert.Equal(t, before, f.kv.Len())
	})

	t.Run("credential without profile is not found", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		require.NoError(t, f.kv.Delete(ctx, "tutor:"+id))

		_, err = f.svc.Login(ctx, testPhone, testPassword)
		errutil.AssertErrorCode(t, err, "PROFILE_NOT_FOUND")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	res, err := f.svc.Login(ctx, testPhone, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.Token))
	require.NoError(t, f.svc.Logout(ctx, res.Token), "second logout still succeeds")
	require.NoError(t, f.svc.Logout(ctx, ""))

	_, _, err = f.svc.ResolveSession(ctx, res.Token)
	errutil.AssertErrorCode(t, err, "SESSION_INVALID")
}

func TestService_ResolveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("live session resolves profile", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		res, err := f.svc.Login(ctx, testPhone, testPassword)
		require.NoError(t, err)

		sess, p, err := f.svc.ResolveSession(ctx, res.Token)
		require.NoError(t, err)
		assert.Equal(t, id, sess.UserID)
		assert.Equal(t, id, p.ID)
	})

	t.Run("expired session", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		res, err := f.svc.Login(ctx, testPhone, testPassword)
		require.NoError(t, err)

		f.clock.t = res.Session.ExpiresAt.Add(time.Second)
		_, _, err = f.svc.ResolveSession(ctx, res.Token)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("session whose profile vanished", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		res, err := f.svc.Login(ctx, testPhone, testPassword)
		require.NoError(t, err)
		require.NoError(t, f.kv.Delete(ctx, "tutor:"+id))

		_, _, err = f.svc.ResolveSession(ctx, res.Token)
		errutil.AssertErrorCode(t, err, "PROFILE_NOT_FOUND")
	})
}

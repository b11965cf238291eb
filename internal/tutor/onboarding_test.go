// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package tutor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorcab/tutorcab/internal/kv"
	"github.com/tutorcab/tutorcab/internal/tutor"
	"github.com/tutorcab/tutorcab/internal/validate"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

func setupTracker(t *testing.T, opts ...tutor.TrackerOption) (*tutor.Tracker, *tutor.ProfileStore, string) {
	t.Helper()
	s := tutor.NewProfileStore(kv.NewMemoryStore())
	p, rec := newProfile("+79161234567")
	require.NoError(t, s.Create(context.Background(), p, rec))
	return tutor.NewTracker(s, opts...), s, p.ID
}

func TestTracker_Permissive(t *testing.T) {
	ctx := context.Background()

	t.Run("any in-range step is stored", func(t *testing.T) {
		tr, s, id := setupTracker(t)
		for _, step := range []tutor.Step{3, 1, 4, 0, 2} {
			p, err := tr.SetStep(ctx, id, step)
			require.NoError(t, err)
			assert.Equal(t, step, p.OnboardingStep)

			stored, err := s.GetByIdentity(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, step, stored.OnboardingStep)
		}
	})

	t.Run("out of range is rejected", func(t *testing.T) {
		tr, s, id := setupTracker(t)
		for _, step := range []tutor.Step{-1, 5, 100} {
			_, err := tr.SetStep(ctx, id, step)
			errutil.AssertErrorCode(t, err, validate.Code)
		}
		p, err := s.GetByIdentity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tutor.StepNotStarted, p.OnboardingStep)
	})
}

func TestTracker_Strict(t *testing.T) {
	ctx := context.Background()

	t.Run("walks the sequence one step at a time", func(t *testing.T) {
		tr, _, id := setupTracker(t, tutor.WithStrictOrder(true))
		for step := tutor.StepStudentAdded; step <= tutor.StepCompleted; step++ {
			_, err := tr.SetStep(ctx, id, step)
			require.NoError(t, err, "step %s", step)
		}
		p, err := tr.SetStep(ctx, id, tutor.StepCompleted)
		require.NoError(t, err, "repeating the current step is allowed")
		assert.Equal(t, tutor.StepCompleted, p.OnboardingStep)
	})

	t.Run("rejects skips and regressions", func(t *testing.T) {
		tr, s, id := setupTracker(t, tutor.WithStrictOrder(true))

		_, err := tr.SetStep(ctx, id, tutor.StepLessonAdded)
		errutil.AssertErrorCode(t, err, "ONBOARDING_TRANSITION_REJECTED")

		_, err = tr.SetStep(ctx, id, tutor.StepStudentAdded)
		require.NoError(t, err)
		_, err = tr.SetStep(ctx, id, tutor.StepNotStarted)
		errutil.AssertErrorCode(t, err, "ONBOARDING_TRANSITION_REJECTED")
		errutil.AssertErrorContext(t, err, "from", "student_added")

		p, err := s.GetByIdentity(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tutor.StepStudentAdded, p.OnboardingStep)
	})
}

func TestStep_String(t *testing.T) {
	assert.Equal(t, "completed", tutor.StepCompleted.String())
	assert.Equal(t, "unknown", tutor.Step(9).String())
	assert.False(t, tutor.Step(9).Valid())
}

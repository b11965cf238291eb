// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package tutor

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/internal/validate"
)

// Step is a position in the first-run sequence.
type Step int

// Onboarding steps in order.
const (
	StepNotStarted    Step = 0
	StepStudentAdded  Step = 1
	StepLessonAdded   Step = 2
	StepMaterialAdded Step = 3
	StepCompleted     Step = 4
)

// Valid reports whether s is one of the defined steps.
func (s Step) Valid() bool {
	return s >= StepNotStarted && s <= StepCompleted
}

func (s Step) String() string {
	switch s {
	case StepNotStarted:
		return "not_started"
	case StepStudentAdded:
		return "student_added"
	case StepLessonAdded:
		return "lesson_added"
	case StepMaterialAdded:
		return "material_added"
	case StepCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// strictTransitions lists the steps reachable from each step in strict mode:
// stay put or advance by one.
var strictTransitions = map[Step][]Step{
	StepNotStarted:    {StepNotStarted, StepStudentAdded},
	StepStudentAdded:  {StepStudentAdded, StepLessonAdded},
	StepLessonAdded:   {StepLessonAdded, StepMaterialAdded},
	StepMaterialAdded: {StepMaterialAdded, StepCompleted},
	StepCompleted:     {StepCompleted},
}

// Tracker records the onboarding step of a profile.
type Tracker struct {
	profiles *ProfileStore
	strict   bool
	logger   *slog.Logger
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStrictOrder rejects any transition other than staying on the current
// step or advancing by exactly one.
func WithStrictOrder(strict bool) TrackerOption {
	return func(t *Tracker) { t.strict = strict }
}

// WithTrackerLogger sets the logger.
func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a Tracker. Without options any in-range step is accepted.
func NewTracker(profiles *ProfileStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{profiles: profiles, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetStep moves the profile to step.
func (t *Tracker) SetStep(ctx context.Context, identity string, step Step) (*TutorProfile, error) {
	if !step.Valid() {
		return nil, validate.Fail("step", "must be between 0 and 4")
	}

	var from Step
	p, err := t.profiles.Update(ctx, identity, func(p *TutorProfile) error {
		from = p.OnboardingStep
		if t.strict && !allowed(from, step) {
			return oops.Code("ONBOARDING_TRANSITION_REJECTED").
				With("from", from.String()).
				With("to", step.String()).
				Errorf("cannot move from step %d to step %d", from, step)
		}
		p.OnboardingStep = step
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != step {
		t.logger.InfoContext(ctx, "onboarding step changed",
			"identity", identity, "from", from.String(), "to", step.String())
	}
	return p, nil
}

func allowed(from, to Step) bool {
	for _, s := range strictTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

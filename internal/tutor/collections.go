// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tutorcab/tutorcab/internal/validate"
)

// Longest lesson accepted, in minutes.
const maxLessonMinutes = 720

// StudentInput holds the fields of a new student.
type StudentInput struct {
	Name    string
	Age     string
	Level   string
	Subject string
}

// LessonInput holds the fields of a new lesson.
type LessonInput struct {
	StudentID string
	Subject   string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Duration  string // minutes
}

// MaterialInput holds the fields of a new material.
type MaterialInput struct {
	Title       string
	Subject     string
	Description string
	Type        string
}

// Collections appends entities to a profile's collections.
type Collections struct {
	profiles *ProfileStore
	now      func() time.Time
	logger   *slog.Logger
}

// CollectionsOption configures Collections.
type CollectionsOption func(*Collections)

// WithClock overrides the time source for createdAt stamps.
func WithClock(now func() time.Time) CollectionsOption {
	return func(c *Collections) { c.now = now }
}

// WithCollectionsLogger sets the logger.
func WithCollectionsLogger(l *slog.Logger) CollectionsOption {
	return func(c *Collections) { c.logger = l }
}

// NewCollections creates Collections over profiles.
func NewCollections(profiles *ProfileStore, opts ...CollectionsOption) *Collections {
	c := &Collections{profiles: profiles, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddStudent appends a student and returns it with its new id.
func (c *Collections) AddStudent(ctx context.Context, identity string, in StudentInput) (*Student, error) {
	var v validate.Errors
	v.Required("name", in.Name)
	v.Required("age", in.Age)
	v.Required("level", in.Level)
	v.Required("subject", in.Subject)
	if err := v.Err(); err != nil {
		return nil, err
	}

	st := Student{
		ID:        ulid.Make().String(),
		Name:      strings.TrimSpace(in.Name),
		Age:       strings.TrimSpace(in.Age),
		Level:     strings.TrimSpace(in.Level),
		Subject:   strings.TrimSpace(in.Subject),
		CreatedAt: c.now().UTC(),
	}
	if _, err := c.profiles.Update(ctx, identity, func(p *TutorProfile) error {
		p.Students = append(p.Students, st)
		return nil
	}); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "student added", "identity", identity, "student_id", st.ID)
	return &st, nil
}

// AddLesson appends a lesson. The student id is stored as given.
func (c *Collections) AddLesson(ctx context.Context, identity string, in LessonInput) (*Lesson, error) {
	var v validate.Errors
	v.Required("studentId", in.StudentID)
	v.Required("subject", in.Subject)
	v.Date("date", in.Date)
	v.Clock("time", in.Time)
	v.IntRange("duration", in.Duration, 1, maxLessonMinutes)
	if err := v.Err(); err != nil {
		return nil, err
	}

	l := Lesson{
		ID:        ulid.Make().String(),
		StudentID: strings.TrimSpace(in.StudentID),
		Subject:   strings.TrimSpace(in.Subject),
		Date:      in.Date,
		Time:      in.Time,
		Duration:  strings.TrimSpace(in.Duration),
		CreatedAt: c.now().UTC(),
	}
	if _, err := c.profiles.Update(ctx, identity, func(p *TutorProfile) error {
		p.Lessons = append(p.Lessons, l)
		return nil
	}); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "lesson added", "identity", identity, "lesson_id", l.ID)
	return &l, nil
}

// AddMaterial appends a material record.
func (c *Collections) AddMaterial(ctx context.Context, identity string, in MaterialInput) (*Material, error) {
	var v validate.Errors
	v.Required("title", in.Title)
	v.Required("subject", in.Subject)
	v.Required("description", in.Description)
	v.Required("type", in.Type)
	if err := v.Err(); err != nil {
		return nil, err
	}

	m := Material{
		ID:          ulid.Make().String(),
		Title:       strings.TrimSpace(in.Title),
		Subject:     strings.TrimSpace(in.Subject),
		Description: strings.TrimSpace(in.Description),
		Type:        strings.TrimSpace(in.Type),
		CreatedAt:   c.now().UTC(),
	}
	if _, err := c.profiles.Update(ctx, identity, func(p *TutorProfile) error {
		p.Materials = append(p.Materials, m)
		return nil
	}); err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "material added", "identity", identity, "material_id", m.ID)
	return &m, nil
}

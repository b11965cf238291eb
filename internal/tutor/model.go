// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package tutor holds the tutor profile aggregate and the operations that mutate it.
//
// # Aggregate
//
// A TutorProfile is the root of everything a tutor owns: their students,
// lessons, and materials live inside the profile record rather than in
// separate keys. The profile is created once at registration and is never
// deleted. Entities are append-only.
//
// # Storage
//
// ProfileStore keeps one canonical JSON record per identity under
// "tutor:{identity}" and a phone index "user:{phone}" that holds only the
// identity. Credentials live under "auth:{phone}". Every mutation of a
// profile goes through ProfileStore.Update, which serializes writers of the
// same identity within the process.
package tutor

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// TutorProfile is the aggregate root for one tutor.
type TutorProfile struct {
	ID             string     `json:"id"`
	Phone          string     `json:"phone"`
	FullName       string     `json:"fullName"`
	Subjects       []string   `json:"subjects"`
	City           string     `json:"city"`
	Experience     string     `json:"experience"`
	Levels         []string   `json:"levels"`
	Format         string     `json:"format"`
	Rate           string     `json:"rate"`
	OnboardingStep Step       `json:"onboardingStep"`
	Students       []Student  `json:"students"`
	Lessons        []Lesson   `json:"lessons"`
	Materials      []Material `json:"materials"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Student is a learner taught by the tutor.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       string    `json:"age"`
	Level     string    `json:"level"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lesson is a scheduled lesson. StudentID is not checked against Students.
type Lesson struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Subject   string    `json:"subject"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Duration  string    `json:"duration"`
	CreatedAt time.Time `json:"createdAt"`
}

// Material is teaching-material metadata. File contents are not stored.
type Material struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuthRecord is the stored credential for one phone. It is written once at
// registration and never changed.
type AuthRecord struct {
	UserID         string    `json:"userId"`
	Phone          string    `json:"phone"`
	HashedPassword string    `json:"hashedPassword"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProfileFields are the registration answers copied into a new profile.
type ProfileFields struct {
	FullName   string
	Subjects   []string
	City       string
	Experience string
	Levels     []string
	Format     string
	Rate       string
}

// NewProfile builds a fresh profile at step 0 with empty collections.
func NewProfile(phone string, f ProfileFields, now time.Time) *TutorProfile {
	p := &TutorProfile{
		ID:             ulid.Make().String(),
		Phone:          phone,
		FullName:       f.FullName,
		Subjects:       append([]string(nil), f.Subjects...),
		City:           f.City,
		Experience:     f.Experience,
		Levels:         append([]string(nil), f.Levels...),
		Format:         f.Format,
		Rate:           f.Rate,
		OnboardingStep: StepNotStarted,
		CreatedAt:      now.UTC(),
	}
	p.normalize()
	return p
}

// normalize replaces nil collections so they encode as [] rather than null.
func (p *TutorProfile) normalize() {
	if p.Subjects == nil {
		p.Subjects = []string{}
	}
	if p.Levels == nil {
		p.Levels = []string{}
	}
	if p.Students == nil {
		p.Students = []Student{}
	}
	if p.Lessons == nil {
		p.Lessons = []Lesson{}
	}
	if p.Materials == nil {
		p.Materials = []Material{}
	}
}

// Clone returns a deep copy.
func (p *TutorProfile) Clone() *TutorProfile {
	c := *p
	c.Subjects = append([]string{}, p.Subjects...)
	c.Levels = append([]string{}, p.Levels...)
	c.Students = append([]Student{}, p.Students...)
	c.Lessons = append([]Lesson{}, p.Lessons...)
	c.Materials = append([]Material{}, p.Materials...)
	return &c
}

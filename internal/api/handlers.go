// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package api

import (
	"net/http"

	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/tutor"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

type registerResponse struct {
	Success  bool   `json:"success"`
	Identity string `json:"identity"`
	UserID   string `json:"userId"`
	Message  string `json:"message"`
}

// loginResponse carries the token and profile under both the current names
// and the accessToken/user names older clients read.
type loginResponse struct {
	Success     bool                `json:"success"`
	Token       string              `json:"token"`
	AccessToken string              `json:"accessToken"`
	Profile     *tutor.TutorProfile `json:"profile"`
	User        *tutor.TutorProfile `json:"user"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type profileResponse struct {
	Profile *tutor.TutorProfile `json:"profile"`
}

type studentResponse struct {
	Success bool           `json:"success"`
	Student *tutor.Student `json:"student"`
}

type lessonResponse struct {
	Success bool          `json:"success"`
	Lesson  *tutor.Lesson `json:"lesson"`
}

type materialResponse struct {
	Success  bool            `json:"success"`
	Material *tutor.Material `json:"material"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := s.schemas.decode(w, r, "register", &req); err != nil {
		s.metrics.RecordAuth("register", "invalid")
		writeError(w, r, err, msgRegisterFailed)
		return
	}

	identity, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Phone:      req.Phone,
		Password:   req.Password,
		FullName:   req.FullName,
		Subjects:   req.Subjects,
		City:       req.City,
		Experience: req.Experience,
		Levels:     req.Levels,
		Format:     req.Format,
		Rate:       req.Rate,
	})
	if err != nil {
		s.metrics.RecordAuth("register", registerOutcome(err))
		writeError(w, r, err, msgRegisterFailed)
		return
	}

	s.metrics.RecordAuth("register", "success")
	writeJSON(w, http.StatusOK, registerResponse{
		Success:  true,
		Identity: identity,
		UserID:   identity,
		Message:  msgRegistered,
	})
}

func registerOutcome(err error) string {
	switch errutil.Code(err) {
	case "PROFILE_CONFLICT":
		return "conflict"
	case "VALIDATION_FAILED":
		return "invalid"
	default:
		return "error"
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := s.schemas.decode(w, r, "login", &req); err != nil {
		s.metrics.RecordAuth("login", "invalid")
		writeError(w, r, err, msgLoginFailed)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		s.metrics.RecordAuth("login", loginOutcome(err))
		writeError(w, r, err, msgLoginFailed)
		return
	}

	s.metrics.RecordAuth("login", "success")
	writeJSON(w, http.StatusOK, loginResponse{
		Success:     true,
		Token:       res.Token,
		AccessToken: res.Token,
		Profile:     res.Profile,
		User:        res.Profile,
	})
}

func loginOutcome(err error) string {
	switch errutil.Code(err) {
	case "AUTH_PHONE_NOT_FOUND":
		return "unknown_phone"
	case "AUTH_BAD_CREDENTIAL":
		return "bad_credential"
	case "PROFILE_NOT_FOUND":
		return "missing_profile"
	default:
		return "error"
	}
}

// handleLogout succeeds with or without a token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r.Header.Get("Authorization"))); err != nil {
		writeError(w, r, err, msgLogoutFailed)
		return
	}
	s.metrics.RecordAuth("logout", "success")
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	writeJSON(w, http.StatusOK, profileResponse{Profile: p.profile})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := s.schemas.decode(w, r, "step", &req); err != nil {
		writeError(w, r, err, msgStepFailed)
		return
	}
	p := principalFrom(r.Context())
	if _, err := s.tracker.SetStep(r.Context(), p.session.UserID, tutor.Step(req.Step)); err != nil {
		writeError(w, r, err, msgStepFailed)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := s.schemas.decode(w, r, "student", &req); err != nil {
		writeError(w, r, err, msgStudentFailed)
		return
	}
	p := principalFrom(r.Context())
	st, err := s.collections.AddStudent(r.Context(), p.session.UserID, tutor.StudentInput{
		Name:    req.Name,
		Age:     req.Age,
		Level:   req.Level,
		Subject: req.Subject,
	})
	if err != nil {
		writeError(w, r, err, msgStudentFailed)
		return
	}
	writeJSON(w, http.StatusOK, studentResponse{Success: true, Student: st})
}

func (s *Server) handleAddLesson(w http.ResponseWriter, r *http.Request) {
	var req LessonRequest
	if err := s.schemas.decode(w, r, "lesson", &req); err != nil {
		writeError(w, r, err, msgLessonFailed)
		return
	}
	p := principalFrom(r.Context())
	l, err := s.collections.AddLesson(r.Context(), p.session.UserID, tutor.LessonInput{
		StudentID: req.StudentID,
		Subject:   req.Subject,
		Date:      req.Date,
		Time:      req.Time,
		Duration:  req.Duration,
	})
	if err != nil {
		writeError(w, r, err, msgLessonFailed)
		return
	}
	writeJSON(w, http.StatusOK, lessonResponse{Success: true, Lesson: l})
}

func (s *Server) handleAddMaterial(w http.ResponseWriter, r *http.Request) {
	var req MaterialRequest
	if err := s.schemas.decode(w, r, "material", &req); err != nil {
		writeError(w, r, err, msgMaterialFailed)
		return
	}
	p := principalFrom(r.Context())
	m, err := s.collections.AddMaterial(r.Context(), p.session.UserID, tutor.MaterialInput{
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		Type:        req.Type,
	})
	if err != nil {
		writeError(w, r, err, msgMaterialFailed)
		return
	}
	writeJSON(w, http.StatusOK, materialResponse{Success: true, Material: m})
}

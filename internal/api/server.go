// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

// Package api serves the tutorcab HTTP API.
//
// Every route lives under a configurable base path. Authenticated routes take
// "Authorization: Bearer <token>" and resolve it to a session and profile
// before the handler runs. Failures are written as {"error": "..."} with the
// status chosen from the oops code of the error.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/tutor"
)

// MetricsRecorder receives request and authentication samples.
// observability.Metrics implements it.
type MetricsRecorder interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
	RecordAuth(event, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (noopMetrics) RecordAuth(string, string)                         {}

// ReadinessChecker reports why the API cannot serve, or nil.
type ReadinessChecker func(ctx context.Context) error

// Server routes API requests to the auth and tutor services.
type Server struct {
	auth        *auth.Service
	tracker     *tutor.Tracker
	collections *tutor.Collections

	basePath string
	origins  *originMatcher
	ready    ReadinessChecker
	metrics  MetricsRecorder
	logger   *slog.Logger
	schemas  validators
}

// Option configures a Server.
type Option func(*Server) error

// WithBasePath mounts every API route under prefix, e.g. "/make-server-c3da9688".
func WithBasePath(prefix string) Option {
	return func(s *Server) error {
		s.basePath = prefix
		return nil
	}
}

// WithAllowedOrigins sets the CORS origin globs. "*" allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) error {
		m, err := newOriginMatcher(origins)
		if err != nil {
			return err
		}
		s.origins = m
		return nil
	}
}

// WithReadiness sets the checker behind GET /healthz.
func WithReadiness(check ReadinessChecker) Option {
	return func(s *Server) error {
		s.ready = check
		return nil
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Server) error {
		if m != nil {
			s.metrics = m
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) error {
		if l == nil {
			return oops.Code("API_INVALID").Errorf("logger cannot be nil")
		}
		s.logger = l
		return nil
	}
}

// NewServer creates a Server. CORS allows any origin unless WithAllowedOrigins says otherwise.
func NewServer(authSvc *auth.Service, tracker *tutor.Tracker, collections *tutor.Collections, opts ...Option) (*Server, error) {
	if authSvc == nil {
		return nil, oops.Code("API_INVALID").Errorf("auth service is required")
	}
	if tracker == nil {
		return nil, oops.Code("API_INVALID").Errorf("onboarding tracker is required")
	}
	if collections == nil {
		return nil, oops.Code("API_INVALID").Errorf("collections are required")
	}

	schemas, err := compileValidators()
	if err != nil {
		return nil, err
	}

	s := &Server{
		auth:        authSvc,
		tracker:     tracker,
		collections: collections,
		origins:     &originMatcher{any: true},
		metrics:     noopMetrics{},
		logger:      slog.Default(),
		schemas:     schemas,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Router returns the HTTP handler for the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/healthz", s.handleHealth)

	routes := func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/profile", s.handleProfile)
			r.Post("/onboarding/step", s.handleStep)
			r.Post("/students", s.handleAddStudent)
			r.Post("/lessons", s.handleAddLesson)
			r.Post("/materials", s.handleAddMaterial)
		})
	}
	if s.basePath == "" {
		routes(r)
	} else {
		r.Route(s.basePath, routes)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msgServiceNotReady})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: msgRouteNotFound})
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: msgMethodNotAllowed})
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tutorcab/tutorcab/internal/auth"
	"github.com/tutorcab/tutorcab/internal/logging"
	"github.com/tutorcab/tutorcab/internal/tutor"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type"
	corsMaxAge       = "600"
)

var tracer = otel.Tracer("tutorcab/api")

// accessLog writes one span, one log line and one metric sample per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqID := middleware.GetReqID(r.Context())

		ctx, span := tracer.Start(r.Context(), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("request.id", reqID),
			),
		)
		defer span.End()

		logger := s.logger.With("request_id", reqID)
		ctx = logging.NewContext(ctx, logger)

		next.ServeHTTP(ww, r.WithContext(ctx))

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		s.metrics.ObserveRequest(route, r.Method, status, elapsed)
		logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// originMatcher decides which Origin values may call the API.
type originMatcher struct {
	any      bool
	patterns []glob.Glob
}

func newOriginMatcher(origins []string) (*originMatcher, error) {
	m := &originMatcher{}
	for _, o := range origins {
		if o == "*" {
			m.any = true
			continue
		}
		g, err := glob.Compile(o, '.')
		if err != nil {
			return nil, oops.Code("CORS_ORIGIN_INVALID").With("origin", o).Wrap(err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

func (m *originMatcher) match(origin string) bool {
	if m.any {
		return true
	}
	for _, g := range m.patterns {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

// cors answers preflight requests and sets the allow headers for permitted origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
		allowed := origin != "" && s.origins.match(origin)

		if allowed {
			h := w.Header()
			if s.origins.any {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}

		if !preflight {
			next.ServeHTTP(w, r)
			return
		}
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
				h.Set("Access-Control-Allow-Headers", req)
			} else {
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			}
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// bearerToken extracts the token from "Bearer <token>". Anything else yields "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type sessionKey struct{}

type principal struct {
	session *auth.Session
	profile *tutor.TutorProfile
}

// requireSession resolves the bearer token and stores the session and
// profile on the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.metrics.RecordAuth("session", "missing")
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: msgTokenMissing})
			return
		}

		sess, profile, err := s.auth.ResolveSession(r.Context(), token)
		if err != nil {
			s.metrics.RecordAuth("session", sessionOutcome(err))
			writeError(w, r, err, msgSessionLookupFail)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, &principal{session: sess, profile: profile})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(ctx context.Context) *principal {
	p, _ := ctx.Value(sessionKey{}).(*principal)
	return p
}

func sessionOutcome(err error) string {
	switch errutil.Code(err) {
	case "SESSION_INVALID":
		return "invalid"
	case "SESSION_EXPIRED":
		return "expired"
	case "PROFILE_NOT_FOUND":
		return "missing_profile"
	default:
		return "error"
	}
}

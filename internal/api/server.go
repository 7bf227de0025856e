// Package api exposes the HTTP interface for the capture service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webroll/webroll/internal/capture"
	"github.com/webroll/webroll/internal/dispatch"
	"github.com/webroll/webroll/internal/metrics"
	"github.com/webroll/webroll/internal/session"
)

// Server wires HTTP handlers to the coordinators and stores.
type Server struct {
	router      chi.Router
	users       capture.UserStore
	captures    capture.CaptureStore
	sessions    *session.Store
	coordinator *dispatch.Coordinator
	batches     *dispatch.BatchCoordinator
	logger      *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	users capture.UserStore,
	captures capture.CaptureStore,
	sessions *session.Store,
	coordinator *dispatch.Coordinator,
	batches *dispatch.BatchCoordinator,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		users:       users,
		captures:    captures,
		sessions:    sessions,
		coordinator: coordinator,
		batches:     batches,
		logger:      logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/user/create", s.createUser)
	r.Post("/user/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Delete("/user/session/all", s.deleteAllSessions)
		r.Post("/capture/create", s.createCapture)
		r.Post("/batch/create", s.createBatch)
	})

	// Monitor endpoints are keyed by unguessable uuids and need no session.
	r.Post("/capture/monitor", s.monitorCapture)
	r.Post("/batch/monitor", s.monitorBatch)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userIDKey struct{}

// userID extracts the authenticated user id placed by requireSession.
func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}

// requireSession authenticates the request via the user and session cookies.
// Every failure mode produces the same forbidden response so callers cannot
// probe which part was wrong.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCookie, err := r.Cookie("user")
		if err != nil {
			writeResult(w, http.StatusForbidden, resultInvalidCredentials)
			return
		}
		id, err := strconv.ParseInt(userCookie.Value, 10, 64)
		if err != nil {
			writeResult(w, http.StatusForbidden, resultInvalidCredentials)
			return
		}
		sessionCookie, err := r.Cookie("session")
		if err != nil {
			writeResult(w, http.StatusForbidden, resultInvalidCredentials)
			return
		}
		if !s.sessions.Validate(id, sessionCookie.Value) {
			writeResult(w, http.StatusForbidden, resultInvalidCredentials)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// requestID extracts the id placed by requestIDMiddleware.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Result discriminants shared by the response envelope.
const (
	resultSuccess             = "success"
	resultUnavailableUsername = "unavailable_username"
	resultInvalidUsername     = "invalid_username"
	resultInvalidPassword     = "invalid_password"
	resultInvalidCredentials  = "invalid_credentials"
	resultInvalidURL          = "invalid_url"
	resultNoWorkers           = "no_workers"
	resultNoSuchCapture       = "no_such_capture"
	resultNoSuchBatch         = "no_such_batch"
	resultUnexpectedError     = "unexpected_error"
	resultCapturing           = "capturing"
)

type resultResponse struct {
	Result string `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeResult(w http.ResponseWriter, status int, result string) {
	writeJSON(w, status, resultResponse{Result: result})
}

// Package console serves the signing HTTP API.
package console

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/surenss861/riskmate-sub004/pkg/api"
	"github.com/surenss861/riskmate-sub004/pkg/auth"
	"github.com/surenss861/riskmate-sub004/pkg/evidence"
	"github.com/surenss861/riskmate-sub004/pkg/signing"
)

// Server routes API requests to the signing service.
type Server struct {
	signing   *signing.Service
	evidence  *evidence.Exporter
	validator *auth.JWTValidator
	limiter   api.Limiter
	ready     func(context.Context) error
	logger    *slog.Logger
}

type Option func(*Server)

// WithEvidence enables POST /v1/runs/{runID}/evidence.
func WithEvidence(e *evidence.Exporter) Option { return func(s *Server) { s.evidence = e } }

func WithValidator(v *auth.JWTValidator) Option { return func(s *Server) { s.validator = v } }

func WithLimiter(l api.Limiter) Option { return func(s *Server) { s.limiter = l } }

// WithReadiness sets the check behind GET /readiness, usually a database ping.
func WithReadiness(f func(context.Context) error) Option { return func(s *Server) { s.ready = f } }

func NewServer(svc *signing.Service, opts ...Option) *Server {
	s := &Server{
		signing: svc,
		logger:  slog.Default().With("component", "console"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler wraps the routes in the request-id, access-log, rate-limit and auth
// middleware, outermost first. Without a validator every non-public route is rejected.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readiness", s.handleReadiness)

	mux.HandleFunc("POST /v1/runs", s.handleSealRun)
	mux.HandleFunc("POST /v1/runs/{runID}/signatures", s.handleSign)
	mux.HandleFunc("GET /v1/runs/{runID}/signatures", s.handleListSignatures)
	mux.HandleFunc("GET /v1/runs/{runID}/verify", s.handleVerifyRun)
	if s.evidence != nil {
		mux.HandleFunc("POST /v1/runs/{runID}/evidence", s.handleExportEvidence)
	}

	mux.HandleFunc("GET /v1/signatures", s.handleListRecent)
	mux.HandleFunc("GET /v1/signatures/{id}", s.handleGetSignature)
	mux.HandleFunc("GET /v1/signatures/{id}/verify", s.handleVerifySignature)
	mux.HandleFunc("POST /v1/signatures/verify", s.handleVerifyRecord)

	var h http.Handler = mux
	h = auth.NewMiddleware(s.validator)(h)
	if s.limiter != nil {
		h = api.RateLimit(s.limiter)(h)
	}
	h = s.accessLog(h)
	return auth.RequestIDMiddleware(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", "error", err)
			api.WriteErrorR(w, r, http.StatusServiceUnavailable, "Service Unavailable", "storage is not reachable")
			return
		}
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", auth.GetRequestID(r.Context()),
		)
	})
}

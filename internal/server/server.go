// Package server provides the HTTP REST API for the Farlance marketplace.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/farlance/internal/config"
	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/identity"
	"github.com/jonathan/farlance/internal/jobs"
	"github.com/jonathan/farlance/internal/log"
	"github.com/jonathan/farlance/internal/metrics"
	"github.com/jonathan/farlance/internal/server/middleware"
	"github.com/jonathan/farlance/internal/server/ratelimit"
)

// Store is the persistence the API needs beyond the posting flow.
type Store interface {
	jobs.Store
	ListJobs(ctx context.Context, filters db.JobFilters) ([]db.Job, error)
	ListProfiles(ctx context.Context, filters db.ProfileFilters) ([]db.Profile, error)
	GetProfileByFID(ctx context.Context, fid int64) (*db.Profile, error)
	UpsertProfile(ctx context.Context, input *db.ProfileUpsertInput) (*db.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input *db.ProfileUpdateInput) (*db.Profile, error)
	ReplaceProfileSkills(ctx context.Context, profileID uuid.UUID, skillIDs []uuid.UUID) error
	CountSkills(ctx context.Context, ids []uuid.UUID) (int, error)
	ListSkills(ctx context.Context) ([]db.Skill, error)
	Ping(ctx context.Context) error
}

// IdentityResolver resolves signers and account records for session bootstrap.
type IdentityResolver interface {
	LookupSigner(ctx context.Context, signerUUID string) (*identity.Signer, error)
	UserByFID(ctx context.Context, fid int64) (*identity.User, error)
}

// Options holds the server's collaborators.
type Options struct {
	Config   *config.Config
	Store    Store
	Identity IdentityResolver
	Notifier jobs.Notifier
	JWT      *JWTService
	Metrics  *metrics.Metrics    // nil disables metrics
	Gatherer prometheus.Gatherer // served on /metrics when set
	Limiter  *ratelimit.Limiter  // nil uses ratelimit.LoadConfig()
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	handler    http.Handler

	store       Store
	identity    IdentityResolver
	jobs        *jobs.Service
	jwtService  *JWTService
	metrics     *metrics.Metrics
	rateLimiter *ratelimit.Limiter
	session     config.SessionConfig
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Store == nil || opts.Identity == nil || opts.Notifier == nil || opts.JWT == nil {
		return nil, errors.New("server: missing required option")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}

	s := &Server{
		store:       opts.Store,
		identity:    opts.Identity,
		jwtService:  opts.JWT,
		metrics:     opts.Metrics,
		rateLimiter: opts.Limiter,
		session:     opts.Config.Session,
		jobs: jobs.NewService(opts.Store, opts.Notifier, opts.Metrics, jobs.Options{
			AppURL:      opts.Config.AppURL,
			Concurrency: opts.Config.Notify.Concurrency,
		}),
	}

	auth := middleware.AuthMiddleware(opts.JWT.AsTokenValidator(), opts.Config.Session.CookieName)
	authed := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// Jobs
	mux.HandleFunc("POST /api/jobs", s.handlePostJob)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.Handle("PATCH /api/jobs/{id}/status", authed(s.handleJobStatus))
	mux.Handle("POST /api/jobs/{id}/applications", authed(s.handleApply))
	mux.Handle("GET /api/jobs/{id}/applications", authed(s.handleListApplications))

	// Talent and profiles
	mux.HandleFunc("GET /api/talent", s.handleListTalent)
	mux.HandleFunc("GET /api/profiles/{fid}", s.handleGetProfile)
	mux.Handle("PUT /api/profiles/me", authed(s.handleUpdateProfile))
	mux.Handle("PUT /api/profiles/me/skills", authed(s.handleReplaceSkills))
	mux.HandleFunc("GET /api/skills", s.handleListSkills)

	// Sessions
	mux.HandleFunc("POST /api/auth/session", s.handleCreateSession)
	mux.Handle("GET /api/auth/session", authed(s.handleGetSession))
	mux.HandleFunc("DELETE /api/auth/session", s.handleDeleteSession)

	s.handler = s.withRecover(s.withRateLimit(s.withLogging(s.withCORS(mux))))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Config.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // Job posting clears its own deadline
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done or SIGINT/SIGTERM arrives, then drains
// in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	s.rateLimiter.Stop()

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// withRecover turns handler panics into 500 responses.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error(r.Context(), "panic in handler", fmt.Errorf("%v", rec),
					slog.String("method", r.Method), slog.String("path", r.URL.Path))
				s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.metrics.RateLimited.Inc()
			s.rateLimitResponse(w, r, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging tags the request context with a request id and records the
// outcome of every request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		req := r.WithContext(log.InjectRequest(r.Context(), r, requestID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		// The mux records the matched pattern on req
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		log.Info(req.Context(), "request completed",
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed),
			slog.String("remote", r.RemoteAddr),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Error(r.Context(), "health check failed", err)
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding JSON response", slog.String("error", err.Error()))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"message": message})
}

// writeError maps err to a status. Server errors are logged and their
// details withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", err)
		s.errorResponse(w, status, "Internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Message: "Invalid request body"}
	}
	return nil
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := max(int(info.RetryAfter.Seconds()), 1)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	log.Warn(r.Context(), "rate limit exceeded",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("limit", info.Limit),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

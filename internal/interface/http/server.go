// Package http implements the REST API of Oqu Study Hub: the presence
// webhook for the study-room bot, the attendance status read model and the
// administrative schedule endpoints.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oqu-hub/oqu-study-hub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Addr is the address to bind, e.g. "0.0.0.0:8080".
	Addr string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum duration for idle connections.
	IdleTimeout time.Duration

	// RequestTimeout bounds a single handler invocation.
	RequestTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           "0.0.0.0:8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all handlers the server routes to.
type Dependencies struct {
	Webhook     *handlers.PresenceWebhookHandler
	Status      *handlers.StatusHandler
	Assignments *handlers.AssignmentHandler
	Students    *handlers.StudentHandler
	Health      *handlers.HealthHandler
	Logger      *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	httpServer *http.Server
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer creates the server and wires all routes.
func NewServer(config Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config: config,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(config.RequestTimeout))

	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/live", deps.Health.Live)
	r.Get("/healthz", deps.Health.Ready)

	// ─────────────────────────────────────────────────────────────────────────
	// Presence webhook (study-room bot)
	// ─────────────────────────────────────────────────────────────────────────
	r.Post("/webhook/presence", deps.Webhook.Handle)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/students", func(r chi.Router) {
			r.Post("/", deps.Students.Create)
			r.Get("/{id}", deps.Students.Get)
			r.Get("/{id}/status", deps.Status.GetStatus)
			r.Get("/{id}/live", deps.Status.GetLive)
			r.Get("/{id}/assignments", deps.Assignments.ListByStudent)
			r.Post("/{id}/guardians", deps.Students.AddGuardian)
			r.Get("/{id}/guardians", deps.Students.ListGuardians)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", deps.Assignments.Create)
			r.Get("/{id}", deps.Assignments.Get)
			r.Put("/{id}", deps.Assignments.Update)
			r.Delete("/{id}", deps.Assignments.Delete)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Post("/", deps.Students.CreateActivity)
			r.Get("/", deps.Students.ListActivities)
		})

		r.Route("/recipients/{id}/preferences", func(r chi.Router) {
			r.Put("/", deps.Students.SetPreference)
			r.Get("/", deps.Students.ListPreferences)
		})

		r.Get("/room/present", deps.Status.GetRoom)
	})

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start runs the server until it is shut down. It blocks.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "addr", s.config.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine and reports startup errors on
// the returned channel.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// requestLogger logs every request with its chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

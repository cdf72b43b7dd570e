// Package api serves the turbostart REST backend.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/set-night/turbostart/internal/analytics"
	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/metrics"
	"github.com/set-night/turbostart/internal/service"
)

// Notifier receives registration events for the ops chat.
type Notifier interface {
	LogRegistration(telegramID int64, name, username string, referred bool)
}

type Deps struct {
	Accounts  *service.AccountService
	Artifacts *service.ArtifactService
	Referrals *service.ReferralService
	Admin     *service.AdminService
	Sink      analytics.Sink
	Notifier  Notifier
	Metrics   *metrics.Metrics
	// Gatherer enables GET /metrics when set.
	Gatherer prometheus.Gatherer
	// Ping reports storage health for GET /health.
	Ping   func(ctx context.Context) error
	APIKey string
}

type Server struct {
	Deps
	now func() time.Time
}

func NewServer(d Deps) *Server {
	if d.Sink == nil {
		d.Sink = analytics.Disabled{}
	}
	return &Server{Deps: d, now: time.Now}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(recoverJSON)
	r.Use(middleware.Timeout(config.RequestTimeout))
	r.Use(corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/health", s.handleHealth)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/share/{shareId}", s.handleViewShared)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleUpsertUser)
			r.Get("/{telegramId}", s.handleGetUser)
			r.Get("/{telegramId}/referrals", s.handleUserReferrals)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/{id}", s.handleGetTask)
			r.Get("/user/{telegramId}", s.handleUserTasks)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", s.handleAdminStats)
			r.Get("/users", s.handleAdminUsers)
			r.Get("/users/{telegramId}/activity", s.handleAdminUserActivity)
			r.Get("/tasks", s.handleAdminTasks)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"version":   config.Version,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}
	if s.Ping != nil {
		if err := s.Ping(r.Context()); err != nil {
			body["status"] = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

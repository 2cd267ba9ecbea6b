// Package api provides the Bloom HTTP server: the REST surface over the
// progression engine, challenges, notifications, and health.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bloom-health/bloom/internal/app/challenge"
	"github.com/bloom-health/bloom/internal/app/notify"
	"github.com/bloom-health/bloom/internal/app/progression"
	"github.com/bloom-health/bloom/internal/domain"
	"github.com/bloom-health/bloom/internal/health"
)

// Server is the Bloom HTTP API server.
type Server struct {
	progression    *progression.Service
	challenges     *challenge.Service
	notifications  *notify.Service
	checker        *health.Checker
	issuerKey      string
	metricsEnabled bool
}

// NewServer creates an API server over the engine services.
func NewServer(p *progression.Service, c *challenge.Service, n *notify.Service) *Server {
	return &Server{progression: p, challenges: c, notifications: n}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealthChecker attaches the daemon health checker.
func (s *Server) SetHealthChecker(c *health.Checker) { s.checker = c }

// SetIssuerKey publishes the certificate issuer public key (hex).
func (s *Server) SetIssuerKey(key string) { s.issuerKey = key }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":           Version,
			"issuer_public_key": s.issuerKey,
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/actions", s.handleCreditAction)
		r.Get("/actions/catalog", s.handleActionCatalog)
		r.Get("/badges", s.handleBadgeCatalog)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/progression", s.handleProgression)
			r.Get("/history", s.handleHistory)
			r.Get("/notifications", s.handleNotifications)
		})
		r.Post("/notifications/{id}/shown", s.handleNotificationShown)

		r.Route("/challenges", func(r chi.Router) {
			r.Get("/", s.handleListChallenges)
			r.Route("/{challengeID}", func(r chi.Router) {
				r.Get("/", s.handleGetChallenge)
				r.Post("/join", s.handleJoinChallenge)
				r.Post("/complete-day", s.handleCompleteDay)
				r.Post("/abandon", s.handleAbandonChallenge)
				r.Get("/progress", s.handleChallengeProgress)
				r.Get("/leaderboard", s.handleLeaderboard)
				r.Post("/certificate", s.handleIssueCertificate)
			})
		})
		r.Get("/certificates/{certificateID}", s.handleCertificateByID)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// Version is the reported engine version.
const Version = "0.3.0"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status := http.StatusOK
	state := "ok"
	if !s.checker.IsHealthy() {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": s.checker.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps the engine error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindStateConflict:
		status = http.StatusConflict
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindPermission:
		status = http.StatusForbidden
	case domain.KindConcurrency:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

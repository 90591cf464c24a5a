// Package api exposes the HTTP interface for the bounty service.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bountyradar/bountyradar/internal/bounty"
	"github.com/bountyradar/bountyradar/internal/config"
	"github.com/bountyradar/bountyradar/internal/metrics"
	"github.com/bountyradar/bountyradar/internal/pipeline"
)

const serviceName = "bountyradar"

// Server wires HTTP handlers to the scrape pipeline.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Service
	notifier bounty.Notifier
	clock    bounty.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	pipe *pipeline.Service,
	notifier bounty.Notifier,
	clock bounty.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline: pipe,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/", s.home)
	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/bounties", s.getBounties)
	r.Post("/scrape", s.triggerScrape)
	r.Post("/webhook/daily", s.dailyWebhook)
	r.Post("/test-slack", s.testSlack)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Bounty Radar API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/":              "This documentation",
			"/health":        "Health check",
			"/metrics":       "Prometheus metrics",
			"/bounties":      "Get all recent bounties",
			"/scrape":        "Trigger manual scrape",
			"/webhook/daily": "Daily webhook for cron jobs",
			"/test-slack":    "Test Slack notification",
		},
		"status": "active",
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.clock.Now().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func (s *Server) getBounties(w http.ResponseWriter, r *http.Request) {
	records, _, err := s.pipeline.Discover(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get bounties")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"bounties":  records,
		"count":     len(records),
		"timestamp": s.clock.Now().Format(time.RFC3339),
	})
}

func (s *Server) triggerScrape(w http.ResponseWriter, r *http.Request) {
	out, err := s.pipeline.Run(r.Context())

	switch out.Status {
	case pipeline.StatusDelivered:
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":         "success",
			"message":        "Bounty notification sent successfully",
			"bounty":         out.Record,
			"total_bounties": out.TotalRecords,
			"new_bounties":   out.NewRecords,
		})
	case pipeline.StatusNoNewRecords:
		if out.TotalRecords == 0 {
			s.writeJSON(w, http.StatusOK, map[string]any{
				"status":   "success",
				"message":  "No bounties found",
				"bounties": []bounty.Record{},
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":         "success",
			"message":        "No new bounties to send",
			"total_bounties": out.TotalRecords,
			"new_bounties":   0,
		})
	case pipeline.StatusNotifierUnconfigured:
		s.writeJSON(w, http.StatusOK, map[string]any{
			"status":         "warning",
			"message":        "No Slack webhook configured",
			"bounty":         out.Record,
			"total_bounties": out.TotalRecords,
			"new_bounties":   out.NewRecords,
		})
	case pipeline.StatusDeliveryFailed:
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": "Failed to send Slack notification",
			"bounty":  out.Record,
		})
	default:
		s.logger.Error("scrape failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":  "error",
			"message": "Scraping failed",
		})
	}
}

// dailyWebhook is the cron entrypoint. When a webhook token is
// configured the caller must present it as a bearer token; the scrape
// itself is identical to POST /scrape.
func (s *Server) dailyWebhook(w http.ResponseWriter, r *http.Request) {
	if token := s.cfg.Auth.WebhookToken; token != "" {
		provided := bearerToken(r)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
	}
	s.triggerScrape(w, r)
}

func (s *Server) testSlack(w http.ResponseWriter, r *http.Request) {
	test := bounty.Record{
		ID:         "test_bounty",
		Title:      "Test Bounty - API Working!",
		Price:      1000.00,
		Link:       "https://replit.com/bounties",
		PostedTime: s.clock.Now(),
	}
	err := s.notifier.Notify(r.Context(), test)
	switch {
	case errors.Is(err, bounty.ErrNotifierUnconfigured):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Slack webhook not configured",
		})
	case err != nil:
		s.logger.Error("test notification failed", zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": "Failed to send test notification",
		})
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status":  "success",
			"message": "Test notification sent successfully",
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
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
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

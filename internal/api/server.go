package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/container-status-poller/internal/metrics"
	"github.com/JakeFAU/container-status-poller/internal/poller"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// WebhookSecretHeader carries the shared secret for run triggers.
const WebhookSecretHeader = "X-Webhook-Secret"

const testNotificationTimeout = 30 * time.Second

// RunController starts runs and reports the latest one.
type RunController interface {
	Trigger(ctx context.Context) error
	Last() poller.LastRun
}

// TestSender delivers a test message to one address.
type TestSender interface {
	SendTest(ctx context.Context, address string) error
}

// ReadyCheck reports whether a downstream dependency is reachable.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config wires the server's collaborators. Tester and Ready are optional.
type Config struct {
	Runs          RunController
	Tester        TestSender
	WebhookSecret string
	Ready         []ReadyCheck
	Logger        *zap.Logger
}

// Server routes HTTP requests to the scheduler and notifiers.
type Server struct {
	router chi.Router
	cfg    Config
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger.Named("api")}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.With(s.webhookSecretMiddleware).Post("/", s.triggerRun)
			r.Get("/last", s.lastRun)
		})
		r.With(s.webhookSecretMiddleware).Post("/notifications/test", s.sendTestNotification)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until queued test notifications finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	failed := map[string]string{}
	for _, c := range s.cfg.Ready {
		if err := c.Check(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	err := s.cfg.Runs.Trigger(r.Context())
	switch {
	case errors.Is(err, tracker.ErrRunInProgress):
		writeError(w, http.StatusConflict, "poll run already in progress")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func (s *Server) lastRun(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Runs.Last())
}

type testNotificationRequest struct {
	ToEmail string `json:"to_email"`
}

func (s *Server) sendTestNotification(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	address := strings.TrimSpace(req.ToEmail)
	if address == "" {
		writeError(w, http.StatusBadRequest, "to_email is required")
		return
	}
	if _, err := mail.ParseAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, "to_email is not a valid address")
		return
	}
	if s.cfg.Tester == nil {
		writeError(w, http.StatusServiceUnavailable, "email notifications are not configured")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, testNotificationTimeout)
		defer cancel()
		if err := s.cfg.Tester.SendTest(ctx, address); err != nil {
			s.logger.Error("test notification failed", zap.Error(err))
			metrics.ObserveNotification("email", "failed")
			return
		}
		metrics.ObserveNotification("email", "sent")
		s.logger.Info("test notification sent")
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "to_email": address})
}

func (s *Server) webhookSecretMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.cfg.WebhookSecret
		got := r.Header.Get(WebhookSecretHeader)
		if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
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

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

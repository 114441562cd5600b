package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"citasya/internal/config"
	"citasya/internal/domain"
	"citasya/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer exposes the booking engine over HTTP. All flow state lives in
// the session store; handlers stay stateless.
type HTTPServer struct {
	cfg       config.APIConfig
	engineCfg config.EngineConfig
	wizard    *service.Wizard
	cancel    *service.CancelFlow
	catalog   domain.CatalogProvider
	store     domain.SessionStore
	logger    *zerolog.Logger
	limiter   *rateLimiter
	server    *http.Server
}

func NewHTTPServer(
	cfg config.APIConfig,
	engineCfg config.EngineConfig,
	wizard *service.Wizard,
	cancelFlow *service.CancelFlow,
	catalog domain.CatalogProvider,
	store domain.SessionStore,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		engineCfg: engineCfg,
		wizard:    wizard,
		cancel:    cancelFlow,
		catalog:   catalog,
		store:     store,
		logger:    logger,
		limiter:   newRateLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/empresa/{empresa}/sessions", srv.handleStartSession)
	mux.HandleFunc("GET /api/v1/empresa/{empresa}/servicios", srv.handleServices)
	mux.HandleFunc("GET /api/v1/empresa/{empresa}/empleados", srv.handleEmployees)

	mux.HandleFunc("GET /api/v1/sessions/{id}", srv.handleGetSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/servicio", srv.handleSelectService)
	mux.HandleFunc("POST /api/v1/sessions/{id}/empleado", srv.handleSelectEmployee)
	mux.HandleFunc("POST /api/v1/sessions/{id}/fecha", srv.handleSelectDate)
	mux.HandleFunc("POST /api/v1/sessions/{id}/hora", srv.handleSelectTime)
	mux.HandleFunc("POST /api/v1/sessions/{id}/datos", srv.handleCustomerDetails)
	mux.HandleFunc("POST /api/v1/sessions/{id}/siguiente", srv.handleNext)
	mux.HandleFunc("POST /api/v1/sessions/{id}/atras", srv.handleBack)
	mux.HandleFunc("POST /api/v1/sessions/{id}/confirmar", srv.handleSubmit)

	mux.HandleFunc("POST /api/v1/empresa/{empresa}/cancelar/buscar", srv.handleCancelLookup)
	mux.HandleFunc("POST /api/v1/empresa/{empresa}/cancelar/{idCita}", srv.handleCancelConfirm)
	mux.HandleFunc("POST /api/v1/empresa/{empresa}/cancelar/{idCita}/atras", srv.handleCancelBack)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.rateLimitMiddleware(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the configured root handler. Tests drive it directly.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	if s.logger != nil {
		s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	}
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// rateLimiter keeps one token bucket per client host.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{cfg: cfg}
}

func (l *rateLimiter) allow(key string) bool {
	if l.cfg.RPS <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		if s.logger != nil {
			s.logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", recorder.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// Package server provides the thin HTTP ops surface: health and
// scheduler-status endpoints used by operators and the watchdog, not a
// trading API. Routing/middleware setup follows the teacher's
// chi-based server idiom.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/systrader/internal/config"
	"github.com/aristath/systrader/internal/database"
	"github.com/aristath/systrader/internal/execution"
)

// Config holds server configuration.
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	Scheduler *execution.Scheduler
	DB        *database.DB
}

// Server is the ops HTTP server: /health, /api/scheduler/* and
// /api/db/stats only.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	cfg       *config.Config
	scheduler *execution.Scheduler
	db        *database.DB
	startedAt time.Time
}

// New creates a new ops server.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		scheduler: cfg.Scheduler,
		db:        cfg.DB,
		startedAt: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/scheduler/heartbeat", s.handleSchedulerHeartbeat)
		r.Post("/scheduler/orders/{orderID}/cancel", s.handleCancelOrder)
		r.Get("/db/stats", s.handleDBStats)
	})
}

// healthResponse reports whether the process, its background worker and
// its database connection are alive, for use by an external watchdog or
// load balancer probe.
type healthResponse struct {
	Status      string  `json:"status"`
	UptimeSecs  float64 `json:"uptime_seconds"`
	WorkerAlive bool    `json:"worker_alive"`
	DBHealthy   bool    `json:"db_healthy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		UptimeSecs: time.Since(s.startedAt).Seconds(),
	}
	if s.scheduler != nil {
		resp.WorkerAlive = s.scheduler.Heartbeat().Healthy(5 * time.Second)
	}
	if s.db != nil {
		resp.DBHealthy = s.db.QuickCheck(r.Context()) == nil
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleDBStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read database stats")
		http.Error(w, "failed to read database stats", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleSchedulerHeartbeat(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.scheduler.Heartbeat())
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}
	orderID := chi.URLParam(r, "orderID")
	ok := s.scheduler.CancelOrder(orderID)
	s.writeJSON(w, map[string]bool{"cancelled": ok})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

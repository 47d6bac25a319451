// Package server provides the HTTP server and routing for the district
// operations intelligence API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/ingest"
	anomalyhandlers "github.com/uidai-ops/opsintel/internal/modules/anomaly/handlers"
	migrationhandlers "github.com/uidai-ops/opsintel/internal/modules/migration/handlers"
	workloadhandlers "github.com/uidai-ops/opsintel/internal/modules/workload/handlers"
)

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Cfg     *config.Config
	Store   *ingest.Store
	Port    int
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	store          *ingest.Store
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Cfg,
		store:          cfg.Store,
		systemHandlers: NewSystemHandlers(cfg.Store, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)

	allowedOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	if devMode {
		allowedOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	workloadHandler := workloadhandlers.NewHandler(s.store, s.log)
	migrationHandler := migrationhandlers.NewHandler(s.store, s.log)
	anomalyHandler := anomalyhandlers.NewHandler(s.store, s.log)
	summaryHandler := NewSummaryHandlers(s.store, s.log)

	s.router.Get("/health", s.systemHandlers.HandleHealth)
	s.router.Get("/api/system/health", s.systemHandlers.HandleSystemHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", summaryHandler.HandleDashboardSummary)
		r.Get("/config", summaryHandler.HandleConfig)

		r.Get("/workload/forecast", workloadHandler.HandleForecast)
		r.Get("/workload/projections", workloadHandler.HandleProjections)

		r.Get("/migration/choropleth", migrationHandler.HandleChoropleth)
		r.Get("/migration/trends", migrationHandler.HandleTrends)
		r.Get("/migration/summary", migrationHandler.HandleSummary)

		r.Get("/anomalies", anomalyHandler.HandleAnomalies)
		r.Get("/districts/health", anomalyHandler.HandleDistrictHealth)

		r.Get("/enrolments/by-district", summaryHandler.HandleEnrolmentsByDistrict)
		r.Get("/enrolments/age-distribution", summaryHandler.HandleAgeDistribution)
	})
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with method, path, status and duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("Request")
		})
	}
}

// Package server provides the HTTP server and routing for the tax engine.
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

	"github.com/PeterM45/tax-engine/internal/database"
)

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Port     int
	DevMode  bool
	Resolver ScheduleResolver
	CacheDB  *database.DB
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	taxHandlers := NewTaxHandlers(cfg.Resolver, cfg.Log)
	systemHandlers := NewSystemHandlers(cfg.CacheDB, cfg.Log)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", systemHandlers.HandleHealth)
		r.Get("/system/status", systemHandlers.HandleSystemStatus)

		r.Route("/tax", func(r chi.Router) {
			r.Post("/calculate", taxHandlers.HandleCalculate)
			r.Get("/schedule", taxHandlers.HandleGetSchedule)
		})
	})

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		log: cfg.Log.With().Str("component", "server").Logger(),
	}
}

// Router returns the chi router, used by tests to drive handlers directly.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Package web provides the JSON HTTP API for imports, clients and backups.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/bodymetrics/internal/config"
	"github.com/JonMunkholm/bodymetrics/internal/core"
	"github.com/JonMunkholm/bodymetrics/internal/store"
	"github.com/JonMunkholm/bodymetrics/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP server for the BodyMetrics API.
type Server struct {
	service *core.Service
	clients *store.Store
	cfg     *config.Config
	archive store.Archiver
	rate    middleware.RateCounter
	now     func() time.Time
	router  *chi.Mux
	server  *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithArchive enables POST /api/backup/archive.
func WithArchive(a store.Archiver) Option {
	return func(s *Server) { s.archive = a }
}

// WithRateCounter replaces the in-memory import rate counter.
func WithRateCounter(c middleware.RateCounter) Option {
	return func(s *Server) { s.rate = c }
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, clients *store.Store, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service: service,
		clients: clients,
		cfg:     cfg,
		now:     time.Now,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rate == nil && cfg.Rate.Enabled {
		s.rate = middleware.NewMemoryRateCounter(cfg.Rate.ImportsPerMinute)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/status", s.handleStatus)
		r.Get("/metrics", s.handleListMetrics)

		// Imports
		r.Group(func(r chi.Router) {
			if s.rate != nil {
				r.Use(middleware.RateLimit(s.rate))
			}
			r.Post("/import/device", s.handleImportDevice)
			r.Post("/import/roundtrip", s.handleImportRoundTrip)
		})

		// Records
		r.Get("/records", s.handleListRecords)
		r.Get("/records/{id}/status", s.handleRecordStatus)

		// Clients
		r.Get("/clients", s.handleListClients)
		r.Post("/clients", s.handleCreateClient)
		r.Get("/clients/counts", s.handleClientCounts)
		r.Put("/clients/{id}", s.handleUpdateClient)
		r.Delete("/clients/{id}", s.handleDeleteClient)
		r.Get("/clients/{id}/history", s.handleClientHistory)
		r.Get("/clients/{id}/chart", s.handleClientChart)
		r.Get("/clients/{id}/export/{format}", s.handleClientExport)

		// Assignments
		r.Post("/assignments", s.handleAssign)
		r.Delete("/assignments/{recordId}", s.handleUnassign)

		// Backup
		r.Get("/backup", s.handleExportBackup)
		r.Post("/backup", s.handleImportBackup)
		r.Post("/backup/archive", s.handleArchiveBackup)

		// Reset
		r.Delete("/data", s.handleDeleteAll)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

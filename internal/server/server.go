// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"geointel/internal/config"
	"geointel/internal/domain/intel"
	"geointel/internal/metrics"
	"geointel/internal/server/handlers"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	engine intel.Engine,
	events handlers.EventSource,
	eventsTopic string,
	log *slog.Logger,
	checks map[string]HealthCheck,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	intelHandler := handlers.NewIntelHandler(engine)

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", healthHandler(checks))

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Route("/intel", func(r chi.Router) {
				r.Route("/sources", func(r chi.Router) {
					r.Get("/", intelHandler.ListSources)
					r.Post("/{id}/enable", intelHandler.EnableSource)
					r.Post("/{id}/disable", intelHandler.DisableSource)
				})

				r.Get("/entities", intelHandler.GetEntities)
				r.Get("/entities.geojson", intelHandler.GetEntitiesGeoJSON)
				r.Get("/fixes", intelHandler.GetFixes)
				r.Get("/filtered", intelHandler.GetFiltered)

				r.Get("/filter", intelHandler.GetCriteria)
				r.Put("/filter", intelHandler.PutCriteria)

				r.Get("/metrics", intelHandler.GetMetrics)
				r.Get("/trails", intelHandler.GetTrails)
				r.Get("/tooltip/{source}/{id}", intelHandler.GetTooltip)
			})
		})
	})

	// Prometheus scrape endpoint
	router.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint for the live dashboard
	if events != nil {
		router.Get("/ws/intel", handlers.IntelWebSocketHandler(engine, events, eventsTopic, handlers.DefaultWebSocketConfig(), log))
	}

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var failures []string
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			}
		}
		if len(failures) > 0 {
			sort.Strings(failures)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(strings.Join(failures, "\n")))
			return
		}
		w.Write([]byte("OK"))
	}
}

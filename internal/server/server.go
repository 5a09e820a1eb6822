// internal/server/server.go

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"stagemap/internal/config"
	"stagemap/internal/domain/event"
	"stagemap/internal/domain/messaging"
	"stagemap/internal/server/handlers"
)

// Services holds what the HTTP layer calls into
type Services struct {
	Events     event.Manager
	Queries    handlers.QueryParser
	Stages     handlers.StageService
	Users      handlers.UserService
	Auth       Authenticator
	Subscriber messaging.Subscriber

	// Location is the display timezone of dates and clock times
	Location *time.Location

	// WebSocket configures stage watchers
	WebSocket handlers.WebSocketConfig

	// Ready reports whether backing stores are reachable; nil means always ready
	Ready func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, services Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(authenticate(services.Auth, logger))

	// Create handler dependencies
	eventHandler := handlers.NewEventHandler(services.Events, services.Queries, services.Location, logger)
	stageHandler := handlers.NewStageHandler(services.Stages, services.Location, logger)
	userHandler := handlers.NewUserHandler(services.Users, logger)

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if services.Ready != nil {
				if err := services.Ready(r.Context()); err != nil {
					logger.Warn("health check failed", zap.Error(err))
					w.WriteHeader(http.StatusServiceUnavailable)
					w.Write([]byte("UNAVAILABLE"))
					return
				}
			}
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Get("/categories", eventHandler.ListCategories)

			// Events API
			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.ListEvents)
				r.Post("/", eventHandler.CreateEvent)
				r.Get("/nearby", eventHandler.GetNearbyEvents)
				r.Get("/{id}", eventHandler.GetEvent)
				r.Put("/{id}", eventHandler.UpdateEvent)
				r.Get("/{id}/stages/locate", eventHandler.LocateSubsection)
			})

			r.Get("/organizer/events", eventHandler.ListOwnEvents)

			// Stages API
			r.Route("/stages/{id}", func(r chi.Router) {
				r.Get("/status", stageHandler.GetStageStatus)
				r.Get("/schedule", stageHandler.GetStageSchedule)
				r.Post("/schedule", stageHandler.AddStageEvent)
				r.Post("/schedule/import", stageHandler.ImportSchedule)
				r.Get("/schedule.ics", stageHandler.ExportCalendar)
			})

			r.Route("/stage-events/{id}", func(r chi.Router) {
				r.Put("/", stageHandler.UpdateStageEvent)
				r.Delete("/", stageHandler.DeleteStageEvent)
			})

			// Users API
			r.Post("/users", userHandler.Register)
			r.Get("/users/me", userHandler.Me)

			// Admin API
			r.Route("/admin", func(r chi.Router) {
				r.Get("/summary", userHandler.Summary)
				r.Get("/users", userHandler.ListUsers)
				r.Put("/users/{id}", userHandler.UpdateUser)
				r.Delete("/users/{id}", userHandler.DeleteUser)
				r.Post("/users/{id}/token", userHandler.IssueToken)
			})
		})
	})

	// WebSocket endpoint for live stage status
	router.Get("/ws/stages/{id}", handlers.StageWebSocketHandler(services.Stages, services.Subscriber, services.WebSocket, logger))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the router
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

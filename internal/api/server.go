package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-wellbeing/pulse/internal/advice"
	"github.com/opensource-wellbeing/pulse/internal/assess"
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Repository domain.Repository
	Cache      domain.Cache
	EventBus   domain.EventBus
	Advice     *advice.Engine
	RateLimit  domain.RateLimitConfig
	Version    string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, processor *assess.Processor, opts Options) *Server {
	handler := NewHandler(opts.Repository, opts.Cache, opts.EventBus, processor, opts.Advice, opts.Version)
	limiter := NewRateLimiter(opts.RateLimit)
	router := chi.NewRouter()

	router.Use(CORSMiddleware(cfg.AllowedOrigins))
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Probes skip institution scoping and rate limiting.
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(InstitutionMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/predict", handler.Predict)
			r.Post("/assessments", handler.Submit)
		})

		r.Get("/assessments", handler.ListAssessments)
		r.Get("/assessments/{id}", handler.GetAssessment)

		r.Get("/analytics", handler.Analytics)
		r.Get("/model", handler.Model)

		r.Get("/suggestions", handler.ListSuggestions)
		r.Post("/suggestions/validate", handler.ValidateSuggestion)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}

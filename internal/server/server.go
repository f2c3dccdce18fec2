package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"refgate/internal/commitstatus"
	"refgate/internal/history"
	"refgate/internal/project"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 30 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware; covers a slow GitHub API call
	RequestTimeout = 25 * time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit  = 120
	WebhookRateLimit = 30
)

// Server represents the HTTP server
type Server struct {
	Registry *project.Registry
	Resolver *commitstatus.Resolver
	History  *history.History // nil disables the deploys endpoint
	Logger   *slog.Logger
	TestMode bool
}

// NewServer creates a new server instance
func NewServer(registry *project.Registry, resolver *commitstatus.Resolver, hist *history.History, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Registry: registry,
		Resolver: resolver,
		History:  hist,
		Logger:   logger,
		TestMode: testMode,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"request_id", middleware.GetReqID(r.Context()),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	// Routes
	r.Get("/health", s.HandleHealth)
	r.Get("/status/{projectName}", s.HandleStatus)
	r.Get("/status/{projectName}/{stageName}", s.HandleStatus)
	r.Delete("/cache/{projectName}", s.HandleExpireCache)
	r.Get("/deploys/{projectName}", s.HandleDeploys)

	// Webhook route with stricter rate limit
	if !s.TestMode {
		r.With(NewWebhookRateLimitMiddleware(WebhookRateLimit, s.Logger)).Post("/in/{projectName}", s.HandleWebhook)
	} else {
		r.Post("/in/{projectName}", s.HandleWebhook)
	}

	return r
}

// Start starts the HTTP server
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr, "projects", s.Registry.Count())

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

// Close releases the deploy history database
func (s *Server) Close() error {
	if s.History != nil {
		return s.History.Close()
	}
	return nil
}

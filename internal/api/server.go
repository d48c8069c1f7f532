// Package api provides the HTTP API server and handlers for the BookHaven application.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/ratelimit"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService *service.AuthService
	bookService *service.BookService
	tagService  *service.TagService
	throttle    func(http.Handler) http.Handler
	router      *chi.Mux
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// throttlePolicy may be nil to disable request throttling.
func NewServer(authService *service.AuthService, bookService *service.BookService, tagService *service.TagService, throttlePolicy *ratelimit.Policy, throttleFailOpen bool, logger *slog.Logger) *Server {
	s := &Server{
		authService: authService,
		bookService: bookService,
		tagService:  tagService,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	if throttlePolicy != nil {
		s.throttle = ratelimit.Middleware(throttlePolicy, throttleFailOpen, ratelimit.ResponseWriterFuncs{
			TooManyRequests: func(w http.ResponseWriter, message string) {
				response.TooManyRequests(w, message, logger)
			},
			ServiceUnavailable: func(w http.ResponseWriter, message string) {
				response.ServiceUnavailable(w, message, logger)
			},
		}, logger)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. Throttling runs after
// RealIP so counters key on the true client address, and before routing so
// every request, matched or not, consumes quota.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.throttle != nil {
		s.router.Use(s.throttle)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		// User endpoints. Sign-up and sign-in are public.
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleSignUp)
			r.Post("/sign_in", s.handleSignIn)
			r.With(s.requireAuth).Delete("/sign_out", s.handleSignOut)
		})

		// Books (require auth).
		r.Route("/books", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListBooks)
			r.Post("/", s.handleCreateBook)
			r.Get("/{id}", s.handleGetBook)
			r.Put("/{id}", s.handleUpdateBook)
			r.Delete("/{id}", s.handleDeleteBook)
		})

		// Tags (require auth).
		r.Route("/tags", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleListTags)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

// decodeJSON decodes a request body into dst. Unknown fields are ignored.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

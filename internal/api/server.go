package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/todmy/faers-signals/internal/auth"
	"github.com/todmy/faers-signals/internal/cache"
	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/internal/storage"
)

// Dependencies holds the collaborators the HTTP server delegates to
type Dependencies struct {
	Auth     auth.Service
	Engine   *signal.Service
	Cases    storage.CaseRepository
	Analyses storage.AnalysisRepository
	Cache    cache.Cache
	Logger   *logrus.Logger
}

type Server struct {
	router       *chi.Mux
	authService  auth.Service
	authHandlers *auth.Handlers
	engine       *signal.Service
	caseRepo     storage.CaseRepository
	analysisRepo storage.AnalysisRepository
	cache        cache.Cache
	logger       *logrus.Logger
}

func NewServer(deps Dependencies) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	c := deps.Cache
	if c == nil {
		c = &cache.NoOpCache{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		router:       r,
		authService:  deps.Auth,
		authHandlers: auth.NewHandlers(deps.Auth),
		engine:       deps.Engine,
		caseRepo:     deps.Cases,
		analysisRepo: deps.Analyses,
		cache:        c,
		logger:       logger,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.authHandlers.Register)
		r.Post("/auth/login", s.authHandlers.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAnalyst(s.authService))

			r.Get("/auth/me", s.handleMe)

			r.Post("/signals", s.handleDetectSignals)
			r.Post("/signals/cohort", s.handleDetectCohortSignals)

			r.Route("/analyses", func(r chi.Router) {
				r.Get("/", s.handleListAnalyses)
				r.Post("/", s.handleCreateAnalysis)
				r.Get("/{analysisID}", s.handleGetAnalysis)
				r.Get("/{analysisID}/signals", s.handleGetSignals)
				r.Get("/{analysisID}/export", s.handleExportAnalysis)
			})
		})
	})
}

// ServeHTTP makes the server usable as an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

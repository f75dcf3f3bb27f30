// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"instatrends/internal/config"
	"instatrends/internal/server/handlers"
)

// Version reported by the liveness endpoint.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// Deps bundles the collaborators the routes need.
type Deps struct {
	Service   handlers.AnalysisService
	DB        handlers.Pinger
	NATS      *nats.Conn
	Refresher handlers.RefreshStatus
	Source    string
	WSTopic   string
	Logger    *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// Request deadline sized above the analysis pipeline's worst case, so
	// every downstream call (model retries, database writes) carries one.
	requestTimeout := cfg.WriteTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	router.Use(middleware.Timeout(requestTimeout))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	analysisHandler := handlers.NewAnalysisHandler(deps.Service, deps.Logger)
	trendHandler := handlers.NewTrendHandler(deps.Service)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.NATS, deps.Refresher, deps.Source, Version)

	// Routes
	router.Get("/", healthHandler.Root)
	router.Get("/health", healthHandler.Health)
	router.Post("/analyze-profile", analysisHandler.AnalyzeProfile)
	router.Post("/demo-analysis", analysisHandler.DemoAnalysis)
	router.Get("/trends", trendHandler.GetTrends)
	router.Get("/suggestions/{username}", analysisHandler.GetSuggestions)

	// WebSocket feed of trend refresh events
	if deps.NATS != nil {
		router.Get("/ws/trends", handlers.TrendsWebSocketHandler(deps.NATS, deps.WSTopic, deps.Logger))
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

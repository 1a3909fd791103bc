package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	corslib "github.com/rs/cors"

	"github.com/fortuna/icetime/internal/metrics"
)

// Config holds the listener and cross-cutting settings of the REST API.
type Config struct {
	Port           string
	AllowedOrigins []string
	// ScrapesPerMinute limits scrape and backfill requests per client IP.
	// Zero disables the limit.
	ScrapesPerMinute int
}

// Deps are the services behind the routes.
type Deps struct {
	Games    GameReader
	Players  PlayerReader
	Scraper  Scraper
	Backfill BackfillService
	Checks   map[string]HealthChecker
	Metrics  *metrics.Recorder
}

// Server represents the REST API server
type Server struct {
	port   string
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new REST API server
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "rest")

	handler := NewHandler(deps.Games, deps.Players, deps.Scraper, deps.Checks, logger)
	backfillHandler := NewBackfillHandler(deps.Backfill)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger, deps.Metrics))

	// Health check and metrics
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Games
	api.HandleFunc("/games", handler.GetSeasonGames).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}", handler.GetGame).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/events", handler.GetGameEvents).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/toi", handler.GetPlayerTOI).Methods("GET")
	api.HandleFunc("/games/{gameID:[0-9]+}/strength-toi", handler.GetStrengthTOI).Methods("GET")

	// Players
	api.HandleFunc("/players/{playerID:[0-9]+}", handler.GetPlayer).Methods("GET")
	api.HandleFunc("/players/{playerID:[0-9]+}/on-ice", handler.GetPlayerOnIce).Methods("GET")

	// Routes that reach upstream
	upstream := api.NewRoute().Subrouter()
	if cfg.ScrapesPerMinute > 0 {
		upstream.Use(RateLimitMiddleware(cfg.ScrapesPerMinute))
	}
	if deps.Scraper != nil {
		upstream.HandleFunc("/games/{gameID:[0-9]+}/scrape", handler.ScrapeGame).Methods("POST")
	}

	// Backfill operations
	if deps.Backfill != nil {
		upstream.HandleFunc("/backfill", backfillHandler.HandleBackfillRequest).Methods("POST")
		api.HandleFunc("/backfill/status", backfillHandler.HandleBackfillStatus).Methods("GET")
		api.HandleFunc("/backfill/{jobID}", backfillHandler.HandleBackfillJob).Methods("GET")
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := corslib.New(corslib.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	})

	return &Server{
		port:   cfg.Port,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Port),
			Handler:           cors.Handler(router),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the REST API server
func (s *Server) Start() error {
	s.logger.Info("REST API listening", "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

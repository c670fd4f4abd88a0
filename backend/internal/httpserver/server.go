package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/PortNumber53/sports-camp/backend/internal/cache"
	"github.com/PortNumber53/sports-camp/backend/internal/config"
	"github.com/PortNumber53/sports-camp/backend/internal/handlers"
	requesttracking "github.com/PortNumber53/sports-camp/backend/internal/middleware"
	"github.com/PortNumber53/sports-camp/backend/internal/store"
	"github.com/PortNumber53/sports-camp/backend/internal/worker"
)

// Deps are the collaborators the server wires into its routes. Only Intents
// is required; the rest switch optional features on.
type Deps struct {
	Intents    handlers.IntentCreator
	Store      *store.Store
	Responses  *cache.ResponseStore
	Reconciler *worker.Worker
}

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
	worker     *worker.Worker
}

// New constructs an HTTP server using the provided configuration and dependencies.
func New(cfg config.Config, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", requesttracking.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Add request tracking middleware
	if deps.Store != nil {
		router.Use(requesttracking.NewRequestTracker(deps.Store).Middleware())
	}

	router.Get("/healthz", handlers.Health)
	router.Get("/api/test", handlers.ServerTest)
	router.Get("/api/plans", handlers.ListPlans)
	router.Get("/api/config", handlers.ClientConfig(cfg.StripePublishableKey))
	router.Post("/api/bookings", handlers.CreateBooking)

	var ledger handlers.PaymentLedger
	if deps.Store != nil {
		ledger = deps.Store
	}

	var relayMiddleware []func(http.Handler) http.Handler
	if deps.Responses != nil {
		relayMiddleware = append(relayMiddleware, requesttracking.Idempotency(deps.Responses))
	}

	paymentHandler := handlers.NewPaymentHandler(deps.Intents, ledger, cfg.StripeWebhookSecret)
	paymentHandler.RegisterRoutes(router, relayMiddleware...)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      otelhttp.NewHandler(router, "sports-camp"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, worker: deps.Reconciler}
}

// Start begins serving HTTP traffic and starts the reconciler.
func (s *Server) Start() error {
	if s.worker != nil {
		log.Println("[server] Starting payment reconciler...")
		s.worker.Start(context.Background())
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and reconciler.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.worker != nil {
		log.Println("[server] Shutting down payment reconciler...")
		if err := s.worker.Stop(ctx); err != nil {
			log.Printf("[server] Reconciler shutdown error: %v", err)
		}
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

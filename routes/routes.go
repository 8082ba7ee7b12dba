package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fina4you/entitlement-api/app"
	"github.com/fina4you/entitlement-api/handlers"
	"github.com/fina4you/entitlement-api/middleware"
	"github.com/fina4you/entitlement-api/utils"
)

// SetupRoutes configures all application routes and middleware.
// Routes registered before the auth group are public; everything inside it
// requires a verified bearer token.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(deps.Logger.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.WriteTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	billingHandler := handlers.NewBillingHandler(deps.Entitlements, deps.Logger.Named("handlers"))
	healthHandler := handlers.NewHealthHandler(deps.KeySet, deps.PaymentsConfigured(), deps.Logger)

	// Public
	r.Get("/public", handlers.HandlePublic)
	r.Get("/auth/success", handlers.AuthSuccessRedirect(cfg.Server.AuthSuccessRedirect))
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Gated
	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Get("/private", handlers.HandlePrivate)
		r.Post("/stripe", billingHandler.HandleCreateCheckoutSession)
		r.Get("/subscription-status", billingHandler.HandleSubscriptionStatus)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/memberbeat/admin/internal/config"
	"github.com/memberbeat/admin/internal/handler"
	appMiddleware "github.com/memberbeat/admin/internal/middleware"
	"github.com/memberbeat/admin/internal/repository"
	"github.com/memberbeat/admin/internal/service"
	"github.com/memberbeat/admin/internal/ws"
	"github.com/memberbeat/admin/pkg/ledger"
)

// newRouter wires services, handlers and middleware. stop ends the rate
// limiters' background sweeps.
func newRouter(cfg *config.Config, stores *repository.Stores, l ledger.Ledger, authSvc *service.AuthService) (h http.Handler, stop func()) {
	// Initialize services
	planSvc := service.NewPlanService(stores.Plans, stores.Tokens)
	tokenSvc := service.NewTokenService(stores.Tokens)
	publishSvc := service.NewPublishService(stores.Plans, stores.Tokens, l, cfg.Ledger.Network)
	subSvc := service.NewSubscriptionService(stores.Plans, stores.Tokens, l)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc)
	healthHandler := handler.NewHealthHandler(stores.Pinger, publishSvc)
	userHandler := handler.NewUserHandler(authSvc)
	plansHandler := handler.NewPlansHandler(planSvc)
	tokensHandler := handler.NewTokensHandler(tokenSvc)
	publishHandler := handler.NewPublishHandler(publishSvc)
	subsHandler := handler.NewSubscriptionsHandler(subSvc)
	streamHandler := ws.NewPublishHandler(publishSvc, authSvc)

	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery)
	r.Use(appMiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	globalRL := appMiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	loginRL := appMiddleware.NewRateLimiter(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst)
	r.Use(globalRL.Middleware())

	// Health check and public catalogue (no auth)
	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)
	r.Get("/api/plans/{id}", plansHandler.Get)
	r.Get("/api/tokens", tokensHandler.List)
	r.Get("/api/tokens/{id}", tokensHandler.Get)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(loginRL.Middleware())
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Publish progress stream (auth via query param)
	r.Get("/api/publish/stream", streamHandler.Handle)

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		// Subscriptions of the configured ledger account
		r.Get("/api/subscriptions", subsHandler.List)
		r.Post("/api/subscriptions", subsHandler.Subscribe)
		r.Delete("/api/subscriptions/{planId}", subsHandler.Unsubscribe)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)

			r.Post("/api/plans", plansHandler.Create)
			r.Put("/api/plans/{id}", plansHandler.Update)
			r.Delete("/api/plans/{id}", plansHandler.Delete)
			r.Post("/api/plans/{id}/billing-plans", plansHandler.AddBillingPlan)
			r.Put("/api/plans/{id}/billing-plans/{billingPlanId}", plansHandler.UpdateBillingPlan)
			r.Delete("/api/plans/{id}/billing-plans/{billingPlanId}", plansHandler.RemoveBillingPlan)

			r.Post("/api/tokens", tokensHandler.Create)
			r.Put("/api/tokens/{id}", tokensHandler.Update)
			r.Delete("/api/tokens/{id}", tokensHandler.Delete)

			r.Get("/api/publish/owner", publishHandler.Owner)
			r.Post("/api/publish/plans", publishHandler.Plans)
			r.Post("/api/publish/tokens", publishHandler.Tokens)

			r.Get("/api/users", userHandler.List)
			r.Post("/api/users", userHandler.Create)
			r.Delete("/api/users/{id}", userHandler.Delete)
		})
	})

	return r, func() {
		globalRL.Stop()
		loginRL.Stop()
	}
}

// Package controlapi implements the REST API for the Hermes control plane.
// It exposes the merchant-facing sync trigger and rule-set inspection
// endpoints, routing, request decoding, and response formatting.
package controlapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/fbarbosa/hermes/internal/cache"
	"github.com/fbarbosa/hermes/internal/syncer"
)

// API is the main struct that holds dependencies and the router for the control plane.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// syncer runs the on-demand aggregate+publish path.
	syncer *syncer.Service

	// cache reads back the currently published rule set.
	cache cache.Service

	// apiKeyHash is the SHA-256 hash of the valid API key.
	apiKeyHash string

	// skipAuth disables authentication when true (test/dev environments only).
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled by default.
// The apiKeyHash parameter must be the SHA-256 hash of the API key.
func NewAPI(syncSvc *syncer.Service, cacheSvc cache.Service, apiKeyHash string) *API {
	return NewAPIWithConfig(syncSvc, cacheSvc, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over
// authentication. This constructor is primarily used in tests to disable it.
//
// Panics if:
//   - syncSvc or cacheSvc are nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(syncSvc *syncer.Service, cacheSvc cache.Service, apiKeyHash string, skipAuth bool) *API {
	if syncSvc == nil {
		panic("controlapi: syncer service cannot be nil")
	}
	if cacheSvc == nil {
		panic("controlapi: cache service cannot be nil")
	}

	if !skipAuth && apiKeyHash == "" {
		panic("controlapi: apiKeyHash cannot be empty when authentication is enabled")
	}

	api := &API{
		Router:     chi.NewRouter(),
		syncer:     syncSvc,
		cache:      cacheSvc,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// 1. Global Middleware Stack
	// RequestID: Adds a unique ID to each request context (essential for tracing).
	a.Router.Use(middleware.RequestID)
	// RealIP: correctly sets the IP if behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	// Logger: Logs request method, path, status, and duration.
	a.Router.Use(RequestLogger)
	// Recoverer: Prevents the server from crashing on panics, returning 500 instead.
	a.Router.Use(middleware.Recoverer)
	// Content-Type: Forces JSON content type for API responses.
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// 2. Public Routes (no authentication required)
	a.Router.Get("/health", a.handleHealthCheck)

	// 3. Protected API V1 Routes (authentication required)
	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Route("/shops/{shopID}", func(r chi.Router) {
			r.Post("/sync", a.handleSyncShop)
			r.Get("/rules", a.handleGetRules)
		})
	})
}

// handleHealthCheck verifies that the service is serving and can reach the cache.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.cache.HealthCheck(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

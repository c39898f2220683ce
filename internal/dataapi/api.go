// Package dataapi implements the HTTP Data Plane for discount evaluation.
// It handles the high-performance read path for the storefront checkout.
package dataapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/fbarbosa/hermes/internal/cache"
)

// API holds the dependencies and the router for the evaluation plane.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// l1 is the in-process rule-set cache (first lookup layer).
	l1 *cache.MemoryCache

	// l2 is the shared rule-set cache (source of truth for evaluation).
	l2 cache.Service
}

// NewAPI creates a new Data Plane API instance.
//
// Panics if l1 or l2 are nil: the evaluation plane cannot degrade to a
// cacheless mode without every request paying a round trip it was sized
// to avoid.
func NewAPI(l1 *cache.MemoryCache, l2 cache.Service) *API {
	if l1 == nil {
		panic("dataapi: l1 cache cannot be nil")
	}
	if l2 == nil {
		panic("dataapi: l2 cache service cannot be nil")
	}

	api := &API{
		Router: chi.NewRouter(),
		l1:     l1,
		l2:     l2,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the middleware stack and evaluation endpoints.
// The evaluation plane carries no authentication: it sits behind the
// storefront edge and serves only derived, non-sensitive data.
func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1/shops/{shopID}/evaluate", func(r chi.Router) {
		r.Post("/cart", a.handleEvaluateCart)
		r.Post("/delivery", a.handleEvaluateDelivery)
	})
}

// handleHealthCheck verifies that the service is serving and can reach the
// L2 cache. An L2 outage does not fail cart evaluation (it degrades to the
// empty batch) but it is still a degraded state worth surfacing.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.l2.HealthCheck(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

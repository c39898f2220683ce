// This file implements the two evaluation endpoints, responsible for
// orchestrating validation, cache lookup, and the discount decision logic.
package dataapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/fbarbosa/hermes/internal/engine"
	"github.com/fbarbosa/hermes/internal/logger"
	"github.com/fbarbosa/hermes/internal/observability"
)

// handleEvaluateCart evaluates the cart-line discount for a shop using a
// Read-Through caching strategy.
//
// Flow: L1 (Memory) -> L2 (Redis) -> Engine -> Response
//
// Cart evaluation never fails the request over cache trouble: an L2 error or
// a never-synced shop degrades to the empty rule set, which the engine maps
// to the empty operation batch. Checkout keeps working, the discount just
// does not apply.
func (a *API) handleEvaluateCart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())
	shopID := chi.URLParam(r, "shopID")

	// 1. Input Validation (Fail Fast)
	if errResp := validateShopID(shopID); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	var req EvaluateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("bad request: malformed evaluation payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Request body must be valid JSON with cart and discountClasses",
		})
		return
	}

	// Trace the evaluation attempt (Debug level for high-throughput)
	log.Debug("evaluating cart", slog.String("shop_id", shopID), slog.Int("lines", len(req.Cart.Lines)))

	// 2. Rule Set Lookup (L1 -> L2, read-through)
	rules := a.lookupRuleSet(r, shopID)

	// 3. Discount Evaluation (pure, never errors)
	batch := engine.EvaluateCartLines(req.Cart, req.DiscountClasses, rules)

	observability.EvalDuration.WithLabelValues("cart").Observe(time.Since(start).Seconds())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, batch)
}

// handleEvaluateDelivery evaluates the free-delivery discount for a shop.
//
// Delivery evaluation is cache-free: the only inputs are the cart's delivery
// groups and the granted discount classes. A cart with no delivery groups is
// a caller contract violation and is rejected, never papered over.
func (a *API) handleEvaluateDelivery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())
	shopID := chi.URLParam(r, "shopID")

	if errResp := validateShopID(shopID); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	var req EvaluateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("bad request: malformed evaluation payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Request body must be valid JSON with cart and discountClasses",
		})
		return
	}

	batch, err := engine.EvaluateDelivery(req.Cart, req.DiscountClasses)
	if err != nil {
		if errors.Is(err, engine.ErrNoDeliveryGroups) {
			log.Warn("bad request: cart has no delivery groups", slog.String("shop_id", shopID))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_PRECONDITION_VIOLATION",
				Message: "Cart must contain at least one delivery group",
			})
			return
		}

		log.Error("delivery evaluation failed", slog.String("shop_id", shopID), slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to evaluate delivery discount",
		})
		return
	}

	observability.EvalDuration.WithLabelValues("delivery").Observe(time.Since(start).Seconds())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, batch)
}

// lookupRuleSet resolves a shop's published rule set through both cache
// layers, filling L1 on an L2 hit. Every miss or error path returns the
// empty rule set so evaluation can proceed.
func (a *API) lookupRuleSet(r *http.Request, shopID string) engine.RuleSet {
	log := logger.FromContext(r.Context())

	// L1 Cache Check (In-Memory, Lock-Free)
	rules, found := a.l1.Get(shopID)
	if found {
		observability.CacheLookups.WithLabelValues("l1", "hit").Inc()
		return rules
	}
	observability.CacheLookups.WithLabelValues("l1", "miss").Inc()

	// L2 Cache Check (Redis)
	rules, synced, err := a.l2.GetRuleSet(r.Context(), shopID)
	if err != nil {
		observability.CacheLookups.WithLabelValues("l2", "error").Inc()
		// Fail open: the discount not applying beats the checkout failing.
		log.Error("failed to fetch rule set from l2",
			slog.String("shop_id", shopID),
			slog.String("error", err.Error()),
		)
		return engine.RuleSet{}
	}

	if !synced {
		observability.CacheLookups.WithLabelValues("l2", "miss").Inc()
		// Never-synced shops are not cached in L1: a first sync should
		// become visible without waiting out a negative-entry TTL.
		return engine.RuleSet{}
	}
	observability.CacheLookups.WithLabelValues("l2", "hit").Inc()

	// Cache Fill (Read-Through)
	a.l1.Set(shopID, rules)

	return rules
}

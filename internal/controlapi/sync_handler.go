package controlapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/fbarbosa/hermes/internal/engine"
	"github.com/fbarbosa/hermes/internal/logger"
	"github.com/fbarbosa/hermes/internal/syncer"
)

// handleSyncShop processes the POST /api/v1/shops/{shopID}/sync request.
//
// Responsibilities:
// 1. Validates the shop identifier.
// 2. Runs one full aggregate+publish cycle for the shop.
// 3. Maps the two retryable sync failure modes to distinct status codes.
// 4. Returns the number of rules published (zero included).
func (a *API) handleSyncShop(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	shopID := chi.URLParam(r, "shopID")

	if errResp := validateShopID(shopID); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	count, err := a.syncer.SyncShop(r.Context(), shopID)
	if err != nil {
		log.Error("on-demand sync failed",
			slog.String("shop_id", shopID),
			slog.String("error", err.Error()),
		)

		// Both failure modes are retryable; 502 points at the record source,
		// 503 at the cache, so operators can tell them apart from the edge.
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, syncer.ErrSourceUnavailable):
			status = http.StatusBadGateway
		case errors.Is(err, syncer.ErrPublishFailed):
			status = http.StatusServiceUnavailable
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_SYNC_FAILED",
			Message: "Failed to sync discount rules; safe to retry",
		})
		return
	}

	log.Info("on-demand sync completed",
		slog.String("shop_id", shopID),
		slog.Int("rules_published", count),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, SyncResponse{
		ShopID:         shopID,
		RulesPublished: count,
	})
}

// handleGetRules processes the GET /api/v1/shops/{shopID}/rules request.
// It reads back the currently published rule set so merchants and support
// staff can inspect exactly what the evaluation plane will see.
func (a *API) handleGetRules(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	shopID := chi.URLParam(r, "shopID")

	if errResp := validateShopID(shopID); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	rules, synced, err := a.cache.GetRuleSet(r.Context(), shopID)
	if err != nil {
		log.Error("failed to read published rule set",
			slog.String("shop_id", shopID),
			slog.String("error", err.Error()),
		)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to read published rule set",
		})
		return
	}

	// Serialize "never synced" as an empty array, not null.
	if rules == nil {
		rules = engine.RuleSet{}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RuleSetResponse{
		ShopID: shopID,
		Synced: synced,
		Rules:  rules,
	})
}

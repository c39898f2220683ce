package controlapi

import (
	"regexp"

	"github.com/fbarbosa/hermes/internal/engine"
)

// shopIDRegex ensures shop identifiers are URL-safe slugs.
// We compile it once at package initialization for performance.
var shopIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ErrorResponse is the uniform error payload for the control plane.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SyncResponse reports the outcome of an on-demand shop sync.
type SyncResponse struct {
	ShopID         string `json:"shop_id"`
	RulesPublished int    `json:"rules_published"`
}

// RuleSetResponse carries a shop's currently published rule set.
// Synced distinguishes "never synced" from "synced, zero active rules".
type RuleSetResponse struct {
	ShopID string         `json:"shop_id"`
	Synced bool           `json:"synced"`
	Rules  engine.RuleSet `json:"rules"`
}

// validateShopID enforces the format and length rules for shop identifiers.
func validateShopID(shopID string) *ErrorResponse {
	if shopID == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Shop ID is required",
		}
	}
	if len(shopID) > 128 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Shop ID cannot exceed 128 characters",
		}
	}
	if !shopIDRegex.MatchString(shopID) {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Shop ID may only contain letters, numbers, dots, hyphens, and underscores",
		}
	}
	return nil
}

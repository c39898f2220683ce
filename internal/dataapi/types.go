package dataapi

import (
	"regexp"

	"github.com/fbarbosa/hermes/internal/engine"
)

// shopIDRegex ensures shop identifiers are URL-safe slugs.
var shopIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ErrorResponse is the uniform error payload for the evaluation plane.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EvaluateRequest is the input for both evaluation endpoints: the cart
// snapshot plus the discount classes the current discount grants. The field
// names follow the checkout platform's wire format.
type EvaluateRequest struct {
	Cart            engine.Cart            `json:"cart"`
	DiscountClasses engine.DiscountClasses `json:"discountClasses"`
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

package engine

import "errors"

// ErrNoDeliveryGroups signals a caller bug: delivery evaluation was invoked
// for a cart with zero delivery groups. The caller guarantees at least one
// group exists whenever delivery evaluation is requested, so this is a
// precondition violation and is not retryable.
var ErrNoDeliveryGroups = errors.New("engine: cart has no delivery groups")

// FreeDeliveryMessage is the customer-facing message for the shipping grant.
const FreeDeliveryMessage = "FREE DELIVERY"

// EvaluateDelivery applies the fixed free-shipping rule to the cart's first
// delivery group. It is independent of the rule cache: the only inputs are
// the cart snapshot and the enabled discount classes.
//
// A missing Shipping class degrades to an empty batch ("no shipping discount
// applicable"). A cart with zero delivery groups fails loudly instead, to
// keep the two conditions distinguishable for the caller.
func EvaluateDelivery(cart Cart, classes DiscountClasses) (OperationBatch, error) {
	if !classes.Has(DiscountClassShipping) {
		return EmptyBatch(), nil
	}

	if len(cart.DeliveryGroups) == 0 {
		return OperationBatch{}, ErrNoDeliveryGroups
	}

	// Only the first delivery group receives the grant.
	return OperationBatch{
		Operations: []Operation{
			{
				DeliveryDiscountsAdd: &DeliveryDiscountsAdd{
					Candidates: []Candidate{
						{
							Message: FreeDeliveryMessage,
							Targets: []Target{
								{DeliveryGroup: &DeliveryGroupTarget{ID: cart.DeliveryGroups[0].ID}},
							},
							Value: Value{Percentage: Percentage{Value: 100}},
						},
					},
					SelectionStrategy: SelectionStrategyAll,
				},
			},
		},
	}, nil
}

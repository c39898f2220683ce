package engine

import (
	"fmt"
	"strconv"
)

// EvaluateCartLines matches the cart's lines against the consolidated rule
// set and produces the product discount operations for this evaluation.
//
// The function is pure and total: it never returns an error and degrades to
// an empty batch on every failure path, because the sandboxed runtime it runs
// in would abort the whole checkout on a raised error.
//
// Only the first usable rule in source order is applied per evaluation pass.
// This is a single-rule model, not a stacking one: when several rules could
// match the same product, source order decides the winner.
func EvaluateCartLines(cart Cart, classes DiscountClasses, rules RuleSet) OperationBatch {
	// 1. Fast Exits
	// An empty cart or a missing Product class authorization can never
	// produce an operation. The class check is an authorization boundary,
	// not an optimization: rule content must not override it.
	if len(cart.Lines) == 0 {
		return EmptyBatch()
	}
	if !classes.Has(DiscountClassProduct) {
		return EmptyBatch()
	}

	// 2. Rule Selection
	// Aggregation already drops inert rules, but the rule set is an external
	// input, so re-validate before trusting it.
	rule, ok := firstUsableRule(rules)
	if !ok {
		return EmptyBatch()
	}

	// 3. Line Matching
	// Compile the product list into a set for O(1) membership checks,
	// then gate each line on merchandise type, quantity, and membership.
	products := make(map[string]struct{}, len(rule.Products))
	for _, id := range rule.Products {
		products[id] = struct{}{}
	}

	minimumQuantity := rule.MinimumQuantity()

	var candidates []Candidate
	for _, line := range cart.Lines {
		if line.Merchandise.Type != MerchandiseTypeProductVariant || line.Merchandise.Product == nil {
			continue
		}
		if line.Quantity < minimumQuantity {
			continue
		}
		// A product missing from the rule is normal cart content, not an
		// error; the line is silently excluded.
		if _, found := products[line.Merchandise.Product.ID]; !found {
			continue
		}

		candidates = append(candidates, Candidate{
			Message: percentOffMessage(rule.PercentOff),
			Targets: []Target{{CartLine: &CartLineTarget{ID: line.ID}}},
			Value:   Value{Percentage: Percentage{Value: rule.PercentOff}},
		})
	}

	if len(candidates) == 0 {
		return EmptyBatch()
	}

	// 4. Wrap all candidates in a single operation. Every candidate is
	// applied (ALL), not just the first match.
	return OperationBatch{
		Operations: []Operation{
			{
				ProductDiscountsAdd: &ProductDiscountsAdd{
					Candidates:        candidates,
					SelectionStrategy: SelectionStrategyAll,
				},
			},
		},
	}
}

// firstUsableRule returns the first rule in source order that could produce
// a non-empty evaluation.
func firstUsableRule(rules RuleSet) (RuleConfig, bool) {
	for _, r := range rules {
		if r.Usable() {
			return r, true
		}
	}
	return RuleConfig{}, false
}

// percentOffMessage formats the customer-facing message, e.g. "10% OFF".
// FormatFloat with precision -1 keeps integers clean (10, not 10.00) while
// preserving fractional percentages (12.5).
func percentOffMessage(percentOff float64) string {
	return fmt.Sprintf("%s%% OFF", strconv.FormatFloat(percentOff, 'f', -1, 64))
}

package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// variantLine builds a cart line holding a product variant.
func variantLine(id string, qty int, productID string) CartLine {
	return CartLine{
		ID:       id,
		Quantity: qty,
		Merchandise: Merchandise{
			Type:    MerchandiseTypeProductVariant,
			Product: &ProductRef{ID: productID},
		},
	}
}

func TestEvaluateCartLines(t *testing.T) {
	volumeRule := RuleSet{{Products: []string{"P1"}, MinQty: 2, PercentOff: 10}}
	productClass := DiscountClasses{DiscountClassProduct}

	tests := []struct {
		name    string
		cart    Cart
		classes DiscountClasses
		rules   RuleSet
		want    func(t *testing.T, got OperationBatch)
	}{
		{
			name:    "Should return empty batch for empty cart",
			cart:    Cart{},
			classes: productClass,
			rules:   volumeRule,
			want:    wantEmpty,
		},
		{
			name: "Should return empty batch when Product class is absent (authorization boundary)",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 3, "P1"),
			}},
			classes: DiscountClasses{},
			rules:   volumeRule,
			want:    wantEmpty,
		},
		{
			name: "Should return empty batch when the Shipping class alone is enabled",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 3, "P1"),
			}},
			classes: DiscountClasses{DiscountClassShipping},
			rules:   volumeRule,
			want:    wantEmpty,
		},
		{
			name: "Should discount only the line meeting the minimum quantity",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 3, "P1"),
				variantLine("L2", 1, "P1"),
			}},
			classes: productClass,
			rules:   volumeRule,
			want: func(t *testing.T, got OperationBatch) {
				require.Len(t, got.Operations, 1)
				op := got.Operations[0].ProductDiscountsAdd
				require.NotNil(t, op)
				assert.Equal(t, SelectionStrategyAll, op.SelectionStrategy)
				require.Len(t, op.Candidates, 1)

				c := op.Candidates[0]
				assert.Equal(t, "10% OFF", c.Message)
				assert.Equal(t, 10.0, c.Value.Percentage.Value)
				require.Len(t, c.Targets, 1)
				require.NotNil(t, c.Targets[0].CartLine)
				assert.Equal(t, "L1", c.Targets[0].CartLine.ID)
			},
		},
		{
			name: "Should return empty batch when no line meets the minimum quantity",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 1, "P1"),
				variantLine("L2", 1, "P1"),
			}},
			classes: productClass,
			rules:   volumeRule,
			want:    wantEmpty,
		},
		{
			name: "Should gate minimum quantity per line, not per aggregate product quantity",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 1, "P1"),
				variantLine("L2", 1, "P1"),
			}},
			classes: productClass,
			rules:   RuleSet{{Products: []string{"P1"}, MinQty: 2, PercentOff: 10}},
			want:    wantEmpty,
		},
		{
			name: "Should exclude lines whose product is not in the rule",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 5, "P1"),
				variantLine("L2", 5, "P9"),
			}},
			classes: productClass,
			rules:   volumeRule,
			want: func(t *testing.T, got OperationBatch) {
				require.Len(t, got.Operations, 1)
				op := got.Operations[0].ProductDiscountsAdd
				require.NotNil(t, op)
				require.Len(t, op.Candidates, 1)
				assert.Equal(t, "L1", op.Candidates[0].Targets[0].CartLine.ID)
			},
		},
		{
			name: "Should never target a line whose merchandise is not a product variant",
			cart: Cart{Lines: []CartLine{
				{ID: "L1", Quantity: 5, Merchandise: Merchandise{Type: "CustomProduct"}},
				variantLine("L2", 5, "P1"),
			}},
			classes: productClass,
			rules:   volumeRule,
			want: func(t *testing.T, got OperationBatch) {
				require.Len(t, got.Operations, 1)
				op := got.Operations[0].ProductDiscountsAdd
				require.NotNil(t, op)
				require.Len(t, op.Candidates, 1)
				assert.Equal(t, "L2", op.Candidates[0].Targets[0].CartLine.ID)
			},
		},
		{
			name: "Should skip inert rules and apply the first usable one",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 2, "P1"),
			}},
			classes: productClass,
			rules: RuleSet{
				{Products: []string{}, PercentOff: 50},         // no products
				{Products: []string{"P1"}, PercentOff: 0},      // zero percent
				{Products: []string{"P1"}, PercentOff: 15},     // usable
				{Products: []string{"P1"}, PercentOff: 99},     // never reached
			},
			want: func(t *testing.T, got OperationBatch) {
				require.Len(t, got.Operations, 1)
				op := got.Operations[0].ProductDiscountsAdd
				require.NotNil(t, op)
				require.Len(t, op.Candidates, 1)
				assert.Equal(t, "15% OFF", op.Candidates[0].Message)
				assert.Equal(t, 15.0, op.Candidates[0].Value.Percentage.Value)
			},
		},
		{
			name: "Should default minimum quantity to 1 when the rule carries none",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 1, "P1"),
			}},
			classes: productClass,
			rules:   RuleSet{{Products: []string{"P1"}, PercentOff: 20}},
			want: func(t *testing.T, got OperationBatch) {
				require.Len(t, got.Operations, 1)
				require.NotNil(t, got.Operations[0].ProductDiscountsAdd)
			},
		},
		{
			name: "Should return empty batch when rule set is empty",
			cart: Cart{Lines: []CartLine{
				variantLine("L1", 3, "P1"),
			}},
			classes: productClass,
			rules:   RuleSet{},
			want:    wantEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateCartLines(tt.cart, tt.classes, tt.rules)
			tt.want(t, got)
		})
	}
}

func wantEmpty(t *testing.T, got OperationBatch) {
	t.Helper()
	require.NotNil(t, got.Operations)
	assert.Empty(t, got.Operations)
}

// The serialized output must conform exactly to the platform operation
// schema, including the tagged-variant encoding and the empty-batch shape.
func TestEvaluateCartLines_WireFormat(t *testing.T) {
	cart := Cart{Lines: []CartLine{variantLine("gid://cart/line/1", 3, "gid://product/1")}}
	rules := RuleSet{{Products: []string{"gid://product/1"}, MinQty: 2, PercentOff: 10}}

	got := EvaluateCartLines(cart, DiscountClasses{DiscountClassProduct}, rules)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"operations": [
			{
				"productDiscountsAdd": {
					"candidates": [
						{
							"message": "10% OFF",
							"targets": [{"cartLine": {"id": "gid://cart/line/1"}}],
							"value": {"percentage": {"value": 10}}
						}
					],
					"selectionStrategy": "ALL"
				}
			}
		]
	}`, string(data))

	empty, err := json.Marshal(EvaluateCartLines(Cart{}, DiscountClasses{DiscountClassProduct}, rules))
	require.NoError(t, err)
	assert.JSONEq(t, `{"operations": []}`, string(empty))
}

func TestPercentOffMessage(t *testing.T) {
	assert.Equal(t, "10% OFF", percentOffMessage(10))
	assert.Equal(t, "12.5% OFF", percentOffMessage(12.5))
	assert.Equal(t, "100% OFF", percentOffMessage(100))
}

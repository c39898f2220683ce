// Package engine provides the core logic for volume discount evaluation.
// It exposes two pure functions, one per discount surface (cart lines and
// delivery), that consume a cart snapshot plus the consolidated rule set and
// deterministically produce the discount operations the checkout runtime
// applies. The functions perform no I/O and never panic: the embedding
// runtime aborts the whole checkout on an unhandled failure, so availability
// is prioritized over the correctness of any single discount.
package engine

// DiscountClass identifies a category of discount the platform can authorize
// for an evaluation context.
type DiscountClass string

// Discount classes recognized by the checkout platform.
const (
	DiscountClassProduct  DiscountClass = "PRODUCT"
	DiscountClassOrder    DiscountClass = "ORDER"
	DiscountClassShipping DiscountClass = "SHIPPING"
)

// DiscountClasses is the set of classes enabled for one evaluation call.
// This is a platform-imposed authorization boundary: an evaluator whose
// required class is absent must return an empty result regardless of rule
// content.
type DiscountClasses []DiscountClass

// Has reports whether the given class is present in the set.
func (s DiscountClasses) Has(c DiscountClass) bool {
	for _, dc := range s {
		if dc == c {
			return true
		}
	}
	return false
}

// MerchandiseTypeProductVariant is the merchandise discriminator for lines
// that reference a concrete product variant. Only these lines can qualify
// for a product discount.
const MerchandiseTypeProductVariant = "ProductVariant"

// ProductRef is a reference to a product by its platform ID.
type ProductRef struct {
	ID string `json:"id"`
}

// Merchandise describes what a cart line holds. Type is a discriminator;
// Product is only populated for product variant lines.
type Merchandise struct {
	Type    string      `json:"__typename"`
	Product *ProductRef `json:"product,omitempty"`
}

// CartLine is one line item in a cart snapshot.
type CartLine struct {
	ID          string      `json:"id"`
	Quantity    int         `json:"quantity"`
	Merchandise Merchandise `json:"merchandise"`
}

// DeliveryGroup is one shippable group of cart lines.
type DeliveryGroup struct {
	ID string `json:"id"`
}

// Cart is the point-in-time cart snapshot supplied by the calling runtime.
// The engine never mutates it.
type Cart struct {
	Lines          []CartLine      `json:"lines"`
	DeliveryGroups []DeliveryGroup `json:"deliveryGroups"`
}

// RuleConfig is one merchant-defined volume discount rule in its canonical
// form: the set of product IDs it applies to, the minimum per-line quantity,
// and the percentage taken off qualifying lines.
//
// This struct is also the cache wire format: the published rule set is a
// JSON array of these objects.
type RuleConfig struct {
	Products   []string `json:"products"`
	MinQty     int      `json:"minQty"`
	PercentOff float64  `json:"percentOff"`
}

// Usable reports whether the rule can produce a non-empty evaluation.
// A rule with no products or a zero percentage is inert. Aggregation already
// filters inert rules, but the evaluator re-validates because the rule set
// is an external input it does not control.
func (r RuleConfig) Usable() bool {
	return len(r.Products) > 0 && r.PercentOff > 0
}

// MinimumQuantity returns the per-line quantity gate, defaulting to 1 when
// the rule carries no explicit minimum.
func (r RuleConfig) MinimumQuantity() int {
	if r.MinQty <= 0 {
		return 1
	}
	return r.MinQty
}

// RuleSet is the consolidated, currently-active collection of rules for one
// shop, in source enumeration order. Order is not semantically significant
// but is kept stable so evaluation output is reproducible.
type RuleSet []RuleConfig

// SelectionStrategy tells the checkout engine how to pick among candidates.
type SelectionStrategy string

// SelectionStrategyAll applies every candidate rather than the first match.
// It is the only strategy this engine emits.
const SelectionStrategyAll SelectionStrategy = "ALL"

// CartLineTarget points a candidate at one cart line.
type CartLineTarget struct {
	ID string `json:"id"`
}

// DeliveryGroupTarget points a candidate at one delivery group.
type DeliveryGroupTarget struct {
	ID string `json:"id"`
}

// Target is a tagged variant: exactly one of the fields is set.
type Target struct {
	CartLine      *CartLineTarget      `json:"cartLine,omitempty"`
	DeliveryGroup *DeliveryGroupTarget `json:"deliveryGroup,omitempty"`
}

// Percentage wraps a percentage value, matching the platform schema.
type Percentage struct {
	Value float64 `json:"value"`
}

// Value is the discount magnitude of a candidate.
type Value struct {
	Percentage Percentage `json:"percentage"`
}

// Candidate is one proposed discount: a customer-facing message, the targets
// it applies to, and the percentage taken off.
type Candidate struct {
	Message string   `json:"message"`
	Targets []Target `json:"targets"`
	Value   Value    `json:"value"`
}

// ProductDiscountsAdd instructs the checkout engine to add product discounts.
type ProductDiscountsAdd struct {
	Candidates        []Candidate       `json:"candidates"`
	SelectionStrategy SelectionStrategy `json:"selectionStrategy"`
}

// DeliveryDiscountsAdd instructs the checkout engine to add delivery discounts.
type DeliveryDiscountsAdd struct {
	Candidates        []Candidate       `json:"candidates"`
	SelectionStrategy SelectionStrategy `json:"selectionStrategy"`
}

// Operation is a tagged variant: exactly one of the fields is set.
type Operation struct {
	ProductDiscountsAdd  *ProductDiscountsAdd  `json:"productDiscountsAdd,omitempty"`
	DeliveryDiscountsAdd *DeliveryDiscountsAdd `json:"deliveryDiscountsAdd,omitempty"`
}

// OperationBatch is the result of one evaluation call. The zero value (nil
// operations) marshals as {"operations":[]} via EmptyBatch; evaluators
// always return EmptyBatch rather than a nil slice so the serialized output
// matches the platform schema exactly.
type OperationBatch struct {
	Operations []Operation `json:"operations"`
}

// EmptyBatch returns a batch with zero operations (but a non-nil slice).
func EmptyBatch() OperationBatch {
	return OperationBatch{Operations: []Operation{}}
}

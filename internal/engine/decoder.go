package engine

import (
	"encoding/json"
	"fmt"
)

// ruleConfigWire is the superset of the two configuration schemas found in
// discount records. The canonical shape is {products, minQty, percentOff};
// records written before the schema migration carry
// {cartLinePercentage, collectionIds, quantity} instead. Pointer fields let
// us tell "absent" apart from "zero" when picking the shape.
type ruleConfigWire struct {
	// Canonical shape
	Products   []string `json:"products"`
	MinQty     int      `json:"minQty"`
	PercentOff float64  `json:"percentOff"`

	// Legacy shape
	CartLinePercentage *float64 `json:"cartLinePercentage"`
	CollectionIDs      []string `json:"collectionIds"`
	Quantity           *int     `json:"quantity"`
}

// DecodeRuleConfig parses a raw configuration payload into the canonical
// RuleConfig, accepting both the canonical and the legacy field names.
//
// The canonical shape wins whenever it is present; the legacy fields are
// only consulted when the payload carries no canonical products list. Both
// shapes normalize to the same defaults (minimum quantity 1, percentage 0),
// so business logic downstream never sees the schema drift.
func DecodeRuleConfig(raw []byte) (RuleConfig, error) {
	if len(raw) == 0 {
		return RuleConfig{}, fmt.Errorf("empty rule configuration payload")
	}

	var wire ruleConfigWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return RuleConfig{}, fmt.Errorf("failed to parse rule configuration: %w", err)
	}

	cfg := RuleConfig{
		Products:   wire.Products,
		MinQty:     wire.MinQty,
		PercentOff: wire.PercentOff,
	}

	// Fall back to the legacy field names only when the canonical shape is
	// absent entirely. A canonical record with an empty products list stays
	// canonical (and inert) rather than resurrecting stale legacy fields.
	if wire.Products == nil && (wire.CartLinePercentage != nil || wire.CollectionIDs != nil || wire.Quantity != nil) {
		cfg.Products = wire.CollectionIDs
		if wire.CartLinePercentage != nil {
			cfg.PercentOff = *wire.CartLinePercentage
		}
		if wire.Quantity != nil {
			cfg.MinQty = *wire.Quantity
		}
	}

	if cfg.PercentOff < 0 || cfg.PercentOff > 100 {
		return RuleConfig{}, fmt.Errorf("percentOff must be between 0 and 100, got %v", cfg.PercentOff)
	}

	if cfg.Products == nil {
		cfg.Products = []string{}
	}
	if cfg.MinQty <= 0 {
		cfg.MinQty = 1
	}

	return cfg, nil
}

// DecodeRuleSet parses the published cache blob (a JSON array of canonical
// rule configs) back into a RuleSet. A nil or empty blob decodes to an empty
// rule set; that is a valid state meaning "zero active rules".
func DecodeRuleSet(raw []byte) (RuleSet, error) {
	if len(raw) == 0 {
		return RuleSet{}, nil
	}

	var rs RuleSet
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if rs == nil {
		rs = RuleSet{}
	}
	return rs, nil
}

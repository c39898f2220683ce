package config

import "time"

// SyncerConfig contains configuration for the rule-set sync worker.
type SyncerConfig struct {
	// Enabled toggles the periodic sync loop. On-demand syncs triggered via
	// the control plane work regardless of this flag.
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// Interval is the duration between periodic sync cycles.
	Interval time.Duration `envconfig:"INTERVAL" default:"60s" validate:"gt=0"`

	// ShopTimeout bounds how long a single shop's sync may take before the
	// cycle moves on to the next shop.
	ShopTimeout time.Duration `envconfig:"SHOP_TIMEOUT" default:"10s" validate:"gt=0"`
}

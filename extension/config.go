package extension

import "time"

// Config holds the Udhaar extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.udhaar" or "udhaar" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the ledger currency (default: "inr").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// CreditPolicy is "standing" (default) or "auto_apply". A dataset must
	// keep the policy it was written with.
	CreditPolicy string `json:"credit_policy" mapstructure:"credit_policy" yaml:"credit_policy"`

	// AllocationPolicy names the payment allocation order
	// (default: "oldest_first").
	AllocationPolicy string `json:"allocation_policy" mapstructure:"allocation_policy" yaml:"allocation_policy"`

	// PersistTimeout bounds every store write (default: 10s).
	PersistTimeout time.Duration `json:"persist_timeout" mapstructure:"persist_timeout" yaml:"persist_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:         "inr",
		CreditPolicy:     "standing",
		AllocationPolicy: "oldest_first",
		PersistTimeout:   10 * time.Second,
	}
}

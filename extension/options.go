package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/plugin"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/store/mongo"
	"github.com/xraph/udhaar/store/postgres"
	"github.com/xraph/udhaar/store/sqlite"
)

// Option configures the Udhaar Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres backs the ledger with a grove PostgreSQL database.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) { e.store = postgres.New(db) }
}

// WithSQLite backs the ledger with a grove SQLite database.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) { e.store = sqlite.New(db) }
}

// WithMongo backs the ledger with a grove MongoDB database.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) { e.store = mongo.New(db) }
}

// WithLedgerOption passes a udhaar.Option through to the underlying engine.
func WithLedgerOption(opt udhaar.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, udhaar.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the ledger currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithCreditPolicy sets how overpayments are treated.
func WithCreditPolicy(policy string) Option {
	return func(e *Extension) { e.config.CreditPolicy = policy }
}

// WithAllocationPolicy sets the payment allocation order by name.
func WithAllocationPolicy(name string) Option {
	return func(e *Extension) { e.config.AllocationPolicy = name }
}

// WithPersistTimeout bounds every store write.
func WithPersistTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PersistTimeout = d }
}

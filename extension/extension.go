// Package extension provides the Forge extension adapter for Udhaar.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.udhaar" or "udhaar" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "udhaar"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Shop credit ledger with oldest-first payment allocation"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *udhaar.Ledger
	store      store.Store
	ledgerOpts []udhaar.Option
}

// New creates a new Udhaar Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *udhaar.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}
	e.engine = udhaar.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*udhaar.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("udhaar: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("udhaar: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs udhaar.Option values from the resolved config.
// Pass-through options come last so they win over config.
func (e *Extension) buildLedgerOpts() ([]udhaar.Option, error) {
	opts := make([]udhaar.Option, 0, len(e.ledgerOpts)+4)

	if e.config.Currency != "" {
		opts = append(opts, udhaar.WithCurrency(e.config.Currency))
	}

	credit, err := allocation.ParseCreditPolicy(e.config.CreditPolicy)
	if err != nil {
		return nil, fmt.Errorf("udhaar: credit_policy: %w", err)
	}
	opts = append(opts, udhaar.WithCreditPolicy(credit))

	if e.config.AllocationPolicy != "" {
		opts = append(opts, udhaar.WithAllocationPolicyName(e.config.AllocationPolicy))
	}
	if e.config.PersistTimeout > 0 {
		opts = append(opts, udhaar.WithPersistTimeout(e.config.PersistTimeout))
	}

	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("udhaar: configuration is required but not found in config files; " +
				"ensure 'extensions.udhaar' or 'udhaar' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("udhaar: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("credit_policy", e.config.CreditPolicy),
		forge.F("allocation_policy", e.config.AllocationPolicy),
		forge.F("persist_timeout", e.config.PersistTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.udhaar", "udhaar"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("udhaar: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("udhaar: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.CreditPolicy == "" {
		cfg.CreditPolicy = defaults.CreditPolicy
	}
	if cfg.AllocationPolicy == "" {
		cfg.AllocationPolicy = defaults.AllocationPolicy
	}
	if cfg.PersistTimeout == 0 {
		cfg.PersistTimeout = defaults.PersistTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.CreditPolicy == "" {
		yamlConfig.CreditPolicy = programmaticConfig.CreditPolicy
	}
	if yamlConfig.AllocationPolicy == "" {
		yamlConfig.AllocationPolicy = programmaticConfig.AllocationPolicy
	}
	if yamlConfig.PersistTimeout == 0 {
		yamlConfig.PersistTimeout = programmaticConfig.PersistTimeout
	}

	return mergeWithDefaults(yamlConfig)
}

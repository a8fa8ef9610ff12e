package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// DefaultHookTimeout bounds a single plugin call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onCustomerRegistered []OnCustomerRegistered
	onBillCreated        []OnBillCreated
	onPaymentRecorded    []OnPaymentRecorded
	onBillSettled        []OnBillSettled
	onCreditRecorded     []OnCreditRecorded
	onPersistFailed      []OnPersistFailed
	policies             map[string]allocation.Policy
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:   slog.Default(),
		timeout:  DefaultHookTimeout,
		policies: make(map[string]allocation.Policy),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	if v, ok := p.(AllocationPolicy); ok {
		policy := v.Policy()
		if policy == nil {
			return fmt.Errorf("plugin: %s returned a nil allocation policy", p.Name())
		}
		if _, dup := r.policies[policy.Name()]; dup {
			return fmt.Errorf("plugin: allocation policy %q already registered", policy.Name())
		}
		r.policies[policy.Name()] = policy
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCustomerRegistered); ok {
		r.onCustomerRegistered = append(r.onCustomerRegistered, v)
	}
	if v, ok := p.(OnBillCreated); ok {
		r.onBillCreated = append(r.onBillCreated, v)
	}
	if v, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, v)
	}
	if v, ok := p.(OnBillSettled); ok {
		r.onBillSettled = append(r.onBillSettled, v)
	}
	if v, ok := p.(OnCreditRecorded); ok {
		r.onCreditRecorded = append(r.onCreditRecorded, v)
	}
	if v, ok := p.(OnPersistFailed); ok {
		r.onPersistFailed = append(r.onPersistFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCustomerRegistered)(nil)).Elem(), "OnCustomerRegistered")
	checkInterface(reflect.TypeOf((*OnBillCreated)(nil)).Elem(), "OnBillCreated")
	checkInterface(reflect.TypeOf((*OnPaymentRecorded)(nil)).Elem(), "OnPaymentRecorded")
	checkInterface(reflect.TypeOf((*OnBillSettled)(nil)).Elem(), "OnBillSettled")
	checkInterface(reflect.TypeOf((*OnCreditRecorded)(nil)).Elem(), "OnCreditRecorded")
	checkInterface(reflect.TypeOf((*OnPersistFailed)(nil)).Elem(), "OnPersistFailed")
	checkInterface(reflect.TypeOf((*AllocationPolicy)(nil)).Elem(), "AllocationPolicy")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Policy returns a plugin-provided allocation policy by name.
func (r *Registry) Policy(name string) (allocation.Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCustomerRegistered calls OnCustomerRegistered for all plugins that implement it.
func (r *Registry) EmitCustomerRegistered(ctx context.Context, c *customer.Customer) {
	r.mu.RLock()
	plugins := r.onCustomerRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerRegistered(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerRegistered failed",
				"plugin", p.Name(),
				"customer_id", c.ID.String(),
				"error", err,
			)
		}
	}
}

// EmitBillCreated calls OnBillCreated for all plugins that implement it.
func (r *Registry) EmitBillCreated(ctx context.Context, b *bill.Bill, posting *transaction.Transaction) {
	r.mu.RLock()
	plugins := r.onBillCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillCreated(ctx, b, posting)
		}); err != nil {
			r.logger.Warn("plugin OnBillCreated failed",
				"plugin", p.Name(),
				"bill_id", b.ID.String(),
				"error", err,
			)
		}
	}
}

// EmitPaymentRecorded calls OnPaymentRecorded for all plugins that implement it.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, payment *transaction.Transaction, allocations []allocation.Allocation) {
	r.mu.RLock()
	plugins := r.onPaymentRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentRecorded(ctx, payment, allocations)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentRecorded failed",
				"plugin", p.Name(),
				"transaction_id", payment.ID.String(),
				"error", err,
			)
		}
	}
}

// EmitBillSettled calls OnBillSettled for all plugins that implement it.
func (r *Registry) EmitBillSettled(ctx context.Context, b *bill.Bill) {
	r.mu.RLock()
	plugins := r.onBillSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBillSettled(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnBillSettled failed",
				"plugin", p.Name(),
				"bill_id", b.ID.String(),
				"error", err,
			)
		}
	}
}

// EmitCreditRecorded calls OnCreditRecorded for all plugins that implement it.
func (r *Registry) EmitCreditRecorded(ctx context.Context, customerID id.CustomerID, unapplied, balance types.Money) {
	r.mu.RLock()
	plugins := r.onCreditRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCreditRecorded(ctx, customerID, unapplied, balance)
		}); err != nil {
			r.logger.Warn("plugin OnCreditRecorded failed",
				"plugin", p.Name(),
				"customer_id", customerID.String(),
				"error", err,
			)
		}
	}
}

// EmitPersistFailed calls OnPersistFailed for all plugins that implement it.
func (r *Registry) EmitPersistFailed(ctx context.Context, op string, customerID id.CustomerID, cause error) {
	r.mu.RLock()
	plugins := r.onPersistFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPersistFailed(ctx, op, customerID, cause)
		}); err != nil {
			r.logger.Warn("plugin OnPersistFailed failed",
				"plugin", p.Name(),
				"op", op,
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

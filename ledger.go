package udhaar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/plugin"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/types"
)

// DefaultPersistTimeout bounds a single store.Persist call.
const DefaultPersistTimeout = 10 * time.Second

// Ledger is the credit ledger engine. It owns every customer's bills and
// journal, serializes mutations per customer and keeps the in-memory books
// in step with the store.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	currency       string
	policy         allocation.Policy
	policyName     string
	creditPolicy   allocation.CreditPolicy
	persistTimeout time.Duration
	now            func() time.Time
	configErr      error

	// Loaded books keyed by customer id
	mu    sync.Mutex
	books map[string]*book
	loads singleflight.Group

	dashboard dashboardCache

	stopOnce sync.Once
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		currency:       types.DefaultCurrency,
		creditPolicy:   allocation.CreditStanding,
		persistTimeout: DefaultPersistTimeout,
		now:            time.Now,
		books:          make(map[string]*book),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.policy == nil {
		l.policy = l.resolvePolicy(l.policyName)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		if err := l.plugins.Register(p); err != nil {
			l.logger.Warn("plugin registration failed", "plugin", p.Name(), "error", err)
		}
	}
}

// WithCurrency sets the ledger currency. Every amount the ledger accepts
// must be in it.
func WithCurrency(currency string) Option {
	return func(l *Ledger) {
		if currency != "" {
			l.currency = types.Zero(currency).Currency
		}
	}
}

// WithCreditPolicy sets what happens to unapplied credit when a bill is
// created. A dataset must always be opened with the policy it was written
// under, otherwise replay will report it as corrupt.
func WithCreditPolicy(p allocation.CreditPolicy) Option {
	return func(l *Ledger) {
		if p != "" {
			l.creditPolicy = p
		}
	}
}

// WithAllocationPolicy sets the order in which payments settle bills.
func WithAllocationPolicy(p allocation.Policy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

// WithAllocationPolicyName selects an allocation policy by name. Policies
// contributed by plugins take precedence over the built-in ones.
func WithAllocationPolicyName(name string) Option {
	return func(l *Ledger) {
		l.policy = nil
		l.policyName = name
	}
}

// WithPersistTimeout bounds each store write. A write that times out is
// treated as failed and rolled back.
func WithPersistTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.persistTimeout = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func (l *Ledger) resolvePolicy(name string) allocation.Policy {
	if name != "" {
		if p, ok := l.plugins.Policy(name); ok {
			return p
		}
	}
	p, err := allocation.PolicyByName(name)
	if err != nil {
		l.configErr = err
		return allocation.OldestFirst{}
	}
	return p
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Currency returns the ledger currency.
func (l *Ledger) Currency() string { return l.currency }

// AllocationPolicy returns the active allocation policy.
func (l *Ledger) AllocationPolicy() allocation.Policy { return l.policy }

// CreditPolicy returns the active credit policy.
func (l *Ledger) CreditPolicy() allocation.CreditPolicy { return l.creditPolicy }

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if l.configErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, l.configErr)
	}

	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("ledger started",
		"currency", l.currency,
		"allocation_policy", l.policy.Name(),
		"credit_policy", string(l.creditPolicy),
		"persist_timeout", l.persistTimeout,
	)

	return nil
}

// Stop shuts down the Ledger and closes the store.
func (l *Ledger) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		l.plugins.EmitShutdown(context.Background())

		l.mu.Lock()
		books := l.books
		l.books = make(map[string]*book)
		l.mu.Unlock()

		// Wait for in-flight mutations before closing the store.
		for _, bk := range books {
			bk.mu.Lock()
			bk.evict()
			bk.mu.Unlock()
		}

		err = l.store.Close()
		l.logger.Info("ledger stopped")
	})
	return err
}

// ──────────────────────────────────────────────────
// Book cache
// ──────────────────────────────────────────────────

// book returns the loaded book for customerID, reading it from the store
// on first use. Concurrent first reads share one load.
func (l *Ledger) book(ctx context.Context, customerID id.CustomerID) (*book, error) {
	if customerID.IsNil() {
		return nil, ValidationError{Field: "customer_id", Message: "is required"}
	}
	key := customerID.String()

	if bk := l.cached(key); bk != nil {
		return bk, nil
	}

	// The shared load outlives a cancelled caller; each caller waits on its
	// own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := l.loads.DoChan(key, func() (interface{}, error) {
		if bk := l.cached(key); bk != nil {
			return bk, nil
		}
		bk, err := l.loadBook(loadCtx, customerID)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.books[key] = bk
		l.mu.Unlock()

		l.logger.Debug("book loaded",
			"customer_id", key,
			"bills", len(bk.bills),
			"transactions", len(bk.journal),
		)
		return bk, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*book), nil //nolint:errcheck // singleflight only returns *book values
	}
}

func (l *Ledger) cached(key string) *book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.books[key]
}

// lockBook returns the customer's book with its write lock held. A book
// evicted while the caller waited for the lock is reloaded.
func (l *Ledger) lockBook(ctx context.Context, customerID id.CustomerID) (*book, error) {
	for {
		bk, err := l.book(ctx, customerID)
		if err != nil {
			return nil, err
		}
		bk.mu.Lock()
		if !bk.evicted {
			return bk, nil
		}
		bk.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// rlockBook is lockBook for readers.
func (l *Ledger) rlockBook(ctx context.Context, customerID id.CustomerID) (*book, error) {
	for {
		bk, err := l.book(ctx, customerID)
		if err != nil {
			return nil, err
		}
		bk.mu.RLock()
		if !bk.evicted {
			return bk, nil
		}
		bk.mu.RUnlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// dropBook removes bk from the cache so the next access reloads it from the
// store. The caller holds bk's write lock.
func (l *Ledger) dropBook(bk *book) {
	bk.evict()
	key := bk.customer.ID.String()
	l.mu.Lock()
	if l.books[key] == bk {
		delete(l.books, key)
	}
	l.mu.Unlock()
}

// persist writes batch within the configured timeout. On failure the book
// is dropped from the cache, plugins are told, and a *PersistenceError is
// returned. The caller's in-memory state is untouched either way.
func (l *Ledger) persist(ctx context.Context, op string, bk *book, batch *store.MutationBatch) error {
	pctx, cancel := context.WithTimeout(ctx, l.persistTimeout)
	defer cancel()

	err := l.store.Persist(pctx, batch)
	if err == nil {
		l.dashboard.invalidate()
		return nil
	}

	if bk != nil {
		l.dropBook(bk)
	}
	perr := newPersistenceError(op, err)
	l.logger.Error("persist failed, mutation rolled back",
		"op", op,
		"customer_id", batch.CustomerID.String(),
		"batch_id", batch.ID.String(),
		"rows", batch.Size(),
		"transient", perr.Transient,
		"error", err,
	)
	l.plugins.EmitPersistFailed(context.WithoutCancel(ctx), op, batch.CustomerID, err)
	return perr
}

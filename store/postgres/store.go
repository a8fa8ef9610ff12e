package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	udhaarstore "github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/transaction"
)

// compile-time interface check
var _ udhaarstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("udhaar/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("udhaar/postgres: %w: %w", udhaar.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", udhaar.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) FetchCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	m := new(customerModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", customerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, udhaar.ErrCustomerNotFound
		}
		return nil, err
	}
	return fromCustomerModel(m)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	var models []customerModel
	q := s.pg.NewSelect(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*customer.Customer, len(models))
	for i := range models {
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// ==================== Book Store ====================

func (s *Store) FetchBills(ctx context.Context, customerID id.CustomerID) ([]*bill.Bill, error) {
	var models []billModel
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID.String()).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*bill.Bill, len(models))
	for i := range models {
		b, err := fromBillModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

func (s *Store) FetchTransactions(ctx context.Context, customerID id.CustomerID) ([]*transaction.Transaction, error) {
	var models []transactionModel
	err := s.pg.NewSelect(&models).
		Where("customer_id = $1", customerID.String()).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*transaction.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// Persist writes the batch row by row. A failing step undoes the steps
// before it. Bill updates are guarded by the pre-image paid amount so a
// concurrent writer on another node is detected instead of overwritten.
func (s *Store) Persist(ctx context.Context, batch *udhaarstore.MutationBatch) error {
	var rb udhaarstore.Rollback

	if c := batch.Customer; c != nil {
		if _, err := s.pg.NewInsert(toCustomerModel(c)).Exec(ctx); err != nil {
			return rb.Fail(ctx, fmt.Errorf("udhaar/postgres: insert customer %s: %w", c.ID, err))
		}
		rb.Add(func(ctx context.Context) error {
			_, err := s.pg.NewDelete((*customerModel)(nil)).
				Where("id = $1", c.ID.String()).
				Exec(ctx)
			return err
		})
	}

	for _, b := range batch.NewBills {
		m, err := toBillModel(b)
		if err != nil {
			return rb.Fail(ctx, err)
		}
		if _, err := s.pg.NewInsert(m).Exec(ctx); err != nil {
			return rb.Fail(ctx, fmt.Errorf("udhaar/postgres: insert bill %s: %w", b.ID, err))
		}
		rb.Add(func(ctx context.Context) error {
			_, err := s.pg.NewDelete((*billModel)(nil)).
				Where("id = $1", m.ID).
				Exec(ctx)
			return err
		})
	}

	for _, b := range batch.UpdatedBills {
		prior, ok := batch.PriorBills[b.ID.String()]
		if !ok {
			return rb.Fail(ctx, fmt.Errorf("udhaar/postgres: update bill %s: no pre-image: %w", b.ID, udhaar.ErrInvalidInput))
		}
		if err := s.setPaid(ctx, b, prior); err != nil {
			return rb.Fail(ctx, err)
		}
		rb.Add(func(ctx context.Context) error {
			return s.setPaid(ctx, prior, b)
		})
	}

	for _, t := range batch.Transactions {
		res, err := s.pg.NewInsert(toTransactionModel(t)).
			OnConflict("(id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return rb.Fail(ctx, fmt.Errorf("udhaar/postgres: insert transaction %s: %w", t.ID, err))
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return rb.Fail(ctx, err)
		}
		if rows == 0 {
			return rb.Fail(ctx, fmt.Errorf("transaction %s: %w", t.ID, udhaar.ErrDuplicateTransaction))
		}
		rb.Add(func(ctx context.Context) error {
			_, err := s.pg.NewDelete((*transactionModel)(nil)).
				Where("id = $1", t.ID.String()).
				Exec(ctx)
			return err
		})
	}
	return nil
}

// setPaid moves a bill from the expected paid amount to next's.
func (s *Store) setPaid(ctx context.Context, next, expected *bill.Bill) error {
	res, err := s.pg.NewUpdate((*billModel)(nil)).
		Set("paid_amount = $1", next.PaidAmount.Amount).
		Set("status = $2", string(next.Status)).
		Set("updated_at = $3", next.UpdatedAt).
		Where("id = $4", next.ID.String()).
		Where("paid_amount = $5", expected.PaidAmount.Amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("udhaar/postgres: update bill %s: %w", next.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("udhaar/postgres: bill %s changed concurrently: %w", next.ID, udhaar.ErrStoreUnavailable)
	}
	return nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	udhaarstore "github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/transaction"
)

// Collection name constants.
const (
	colCustomers    = "udhaar_customers"
	colBills        = "udhaar_bills"
	colTransactions = "udhaar_transactions"
)

// compile-time interface check
var _ udhaarstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all udhaar collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("udhaar/mongo: migrate %s indexes: %w: %w", col, udhaar.ErrMigrationFailed, err)
		}
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
	var m customerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": customerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, udhaar.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("udhaar/mongo: get customer: %w", err)
	}
	return fromCustomerModel(&m)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	var models []customerModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("udhaar/mongo: list customers: %w", err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID.String()}).
		Sort(bson.D{{Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("udhaar/mongo: fetch bills: %w", err)
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
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer_id": customerID.String()}).
		Sort(bson.D{{Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("udhaar/mongo: fetch transactions: %w", err)
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

// Persist writes the batch document by document. A failing step undoes the
// ones before it; bill updates only match the pre-image paid amount.
func (s *Store) Persist(ctx context.Context, batch *udhaarstore.MutationBatch) error {
	var rb udhaarstore.Rollback

	if c := batch.Customer; c != nil {
		if _, err := s.mdb.NewInsert(toCustomerModel(c)).Exec(ctx); err != nil {
			return rb.Fail(ctx, fmt.Errorf("udhaar/mongo: insert customer %s: %w", c.ID, err))
		}
		rb.Add(func(ctx context.Context) error {
			_, err := s.mdb.NewDelete((*customerModel)(nil)).
				Filter(bson.M{"_id": c.ID.String()}).
				Exec(ctx)
			return err
		})
	}

	for _, b := range batch.NewBills {
		if _, err := s.mdb.NewInsert(toBillModel(b)).Exec(ctx); err != nil {
			return rb.Fail(ctx, fmt.Errorf("udhaar/mongo: insert bill %s: %w", b.ID, err))
		}
		rb.Add(func(ctx context.Context) error {
			_, err := s.mdb.NewDelete((*billModel)(nil)).
				Filter(bson.M{"_id": b.ID.String()}).
				Exec(ctx)
			return err
		})
	}

	for _, b := range batch.UpdatedBills {
		prior, ok := batch.PriorBills[b.ID.String()]
		if !ok {
			return rb.Fail(ctx, fmt.Errorf("udhaar/mongo: update bill %s: no pre-image: %w", b.ID, udhaar.ErrInvalidInput))
		}
		if err := s.setPaid(ctx, b, prior); err != nil {
			return rb.Fail(ctx, err)
		}
		rb.Add(func(ctx context.Context) error {
			return s.setPaid(ctx, prior, b)
		})
	}

	for _, t := range batch.Transactions {
		if _, err := s.mdb.NewInsert(toTransactionModel(t)).Exec(ctx); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return rb.Fail(ctx, fmt.Errorf("transaction %s: %w", t.ID, udhaar.ErrDuplicateTransaction))
			}
			return rb.Fail(ctx, fmt.Errorf("udhaar/mongo: insert transaction %s: %w", t.ID, err))
		}
		rb.Add(func(ctx context.Context) error {
			_, err := s.mdb.NewDelete((*transactionModel)(nil)).
				Filter(bson.M{"_id": t.ID.String()}).
				Exec(ctx)
			return err
		})
	}
	return nil
}

// setPaid moves a bill from the expected paid amount to next's.
func (s *Store) setPaid(ctx context.Context, next, expected *bill.Bill) error {
	res, err := s.mdb.NewUpdate((*billModel)(nil)).
		Filter(bson.M{"_id": next.ID.String(), "paid_amount": expected.PaidAmount.Amount}).
		Set("paid_amount", next.PaidAmount.Amount).
		Set("status", string(next.Status)).
		Set("updated_at", next.UpdatedAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("udhaar/mongo: update bill %s: %w", next.ID, err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("udhaar/mongo: bill %s changed concurrently: %w", next.ID, udhaar.ErrStoreUnavailable)
	}
	return nil
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all udhaar collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCustomers: {
			{Keys: bson.D{{Key: "phone_digits", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colBills: {
			{
				Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: 1}}},
		},
		colTransactions: {
			{
				Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "date", Value: 1}}},
		},
	}
}

package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Udhaar store (SQLite).
var Migrations = migrate.NewGroup("udhaar")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_udhaar_customers",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS udhaar_customers (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    phone        TEXT NOT NULL,
    phone_digits TEXT NOT NULL DEFAULT '',
    address      TEXT NOT NULL DEFAULT '',
    metadata     TEXT NOT NULL DEFAULT '{}',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_udhaar_customers_phone ON udhaar_customers (phone_digits);
CREATE INDEX IF NOT EXISTS idx_udhaar_customers_created ON udhaar_customers (created_at, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS udhaar_customers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_udhaar_bills",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS udhaar_bills (
    id           TEXT PRIMARY KEY,
    customer_id  TEXT NOT NULL REFERENCES udhaar_customers (id),
    seq          INTEGER NOT NULL,
    date         TEXT NOT NULL,
    items        TEXT NOT NULL DEFAULT '[]',
    currency     TEXT NOT NULL,
    total_amount INTEGER NOT NULL CHECK (total_amount > 0),
    paid_amount  INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'pending',
    due_date     TEXT,
    notes        TEXT NOT NULL DEFAULT '',
    metadata     TEXT NOT NULL DEFAULT '{}',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now')),
    CHECK (paid_amount >= 0 AND paid_amount <= total_amount)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_udhaar_bills_customer_seq ON udhaar_bills (customer_id, seq);
CREATE INDEX IF NOT EXISTS idx_udhaar_bills_status ON udhaar_bills (customer_id, status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS udhaar_bills`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_udhaar_transactions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS udhaar_transactions (
    id          TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL REFERENCES udhaar_customers (id),
    seq         INTEGER NOT NULL,
    date        TEXT NOT NULL,
    type        TEXT NOT NULL,
    currency    TEXT NOT NULL,
    amount      INTEGER NOT NULL CHECK (amount > 0),
    unapplied   INTEGER NOT NULL DEFAULT 0,
    bill_id     TEXT NOT NULL DEFAULT '',
    method      TEXT NOT NULL DEFAULT '',
    notes       TEXT NOT NULL DEFAULT '',
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_udhaar_transactions_customer_seq ON udhaar_transactions (customer_id, seq);
CREATE INDEX IF NOT EXISTS idx_udhaar_transactions_date ON udhaar_transactions (customer_id, date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS udhaar_transactions`)
				return err
			},
		},
	)
}

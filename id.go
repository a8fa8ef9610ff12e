package udhaar

import "github.com/xraph/udhaar/id"

// ID is the primary identifier type for all Udhaar entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// Typed identifiers
type (
	CustomerID    = id.CustomerID
	BillID        = id.BillID
	TransactionID = id.TransactionID
)
